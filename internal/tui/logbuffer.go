package tui

import (
	"strings"
	"sync"
	"time"
)

// LogEntry is one captured log line
type LogEntry struct {
	Message   string
	Timestamp time.Time
}

// LogBuffer keeps the last lines written to the standard logger while the
// TUI owns the terminal
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
	now     func() time.Time
}

// NewLogBuffer creates a ring of the given capacity
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &LogBuffer{
		entries: make([]LogEntry, capacity),
		now:     time.Now,
	}
}

// Write implements io.Writer. One call may carry several lines.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lb.entries[lb.next] = LogEntry{Message: line, Timestamp: lb.now()}
		lb.next = (lb.next + 1) % len(lb.entries)
		if lb.next == 0 {
			lb.full = true
		}
	}

	return len(p), nil
}

// Recent returns up to count entries, newest first
func (lb *LogBuffer) Recent(count int) []LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	size := lb.next
	if lb.full {
		size = len(lb.entries)
	}
	if count > size {
		count = size
	}

	result := make([]LogEntry, 0, count)
	for i := 1; i <= count; i++ {
		idx := (lb.next - i + len(lb.entries)) % len(lb.entries)
		result = append(result, lb.entries[idx])
	}
	return result
}

// Latest returns the newest entry, or nil when nothing was logged
func (lb *LogBuffer) Latest() *LogEntry {
	if recent := lb.Recent(1); len(recent) > 0 {
		return &recent[0]
	}
	return nil
}
