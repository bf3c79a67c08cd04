package bot

import (
	"sync"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

// Pending actions a requester's next text message completes
const (
	PendingUpdateGoal = "update_goal"
)

type pendingEntry struct {
	action  string
	expires time.Time
}

// PendingStore maps a requester to the multi-turn action awaiting their next
// message. Entries expire after ttl.
type PendingStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]pendingEntry
	now     func() time.Time
}

// NewPendingStore creates an empty store
func NewPendingStore(ttl time.Duration) *PendingStore {
	return &PendingStore{
		ttl:     ttl,
		entries: make(map[int64]pendingEntry),
		now:     time.Now,
	}
}

// Set replaces the requester's pending action
func (s *PendingStore) Set(requesterID int64, action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[requesterID] = pendingEntry{action: action, expires: s.now().Add(s.ttl)}
}

// Take removes and returns the requester's pending action if it has not expired
func (s *PendingStore) Take(requesterID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[requesterID]
	if !ok {
		return "", false
	}
	delete(s.entries, requesterID)
	if s.now().After(entry.expires) {
		return "", false
	}
	return entry.action, true
}

// Clear drops the pending action and reports whether a live one existed
func (s *PendingStore) Clear(requesterID int64) bool {
	_, ok := s.Take(requesterID)
	return ok
}

// proposalTTL bounds how long an unanswered confirmation prompt stays valid
const proposalTTL = 24 * time.Hour

// ProposalStore keeps proposals until their confirmation button is pressed.
// Callback data is limited to 64 bytes, so buttons carry only the token.
type ProposalStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	proposals map[string]tasks.Proposal
	now       func() time.Time
}

// NewProposalStore creates an empty store
func NewProposalStore(ttl time.Duration) *ProposalStore {
	return &ProposalStore{
		ttl:       ttl,
		proposals: make(map[string]tasks.Proposal),
		now:       time.Now,
	}
}

// Put stores p under its token and drops expired proposals
func (s *ProposalStore) Put(p tasks.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	for token, old := range s.proposals {
		if old.ProposedAt.Before(cutoff) {
			delete(s.proposals, token)
		}
	}
	s.proposals[p.Token] = p
}

// Take removes and returns the proposal. A token can be used once.
func (s *ProposalStore) Take(token string) (tasks.Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[token]
	if !ok {
		return tasks.Proposal{}, false
	}
	delete(s.proposals, token)
	if p.ProposedAt.Before(s.now().Add(-s.ttl)) {
		return tasks.Proposal{}, false
	}
	return p, true
}

// Len returns the number of stored proposals
func (s *ProposalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.proposals)
}
