package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/config"
	"github.com/alexrabarts/ceo-agent/internal/journal"
	"github.com/alexrabarts/ceo-agent/internal/speech"
	"github.com/alexrabarts/ceo-agent/internal/strategy"
	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

// Assistant answers free text and writes weekly suggestions
type Assistant interface {
	Ask(ctx context.Context, userText string) (string, error)
	GenerateWeeklySuggestions(ctx context.Context) (string, error)
}

// TaskManager is the task lifecycle the router drives
type TaskManager interface {
	ProposeTask(requesterID int64, owner, text string) tasks.Proposal
	ConfirmTask(ctx context.Context, p tasks.Proposal) (tasks.Record, error)
	RejectTask(p tasks.Proposal)
	RecordTranscript(ctx context.Context, requesterID int64, owner, text string) (tasks.Record, error)
	ListTasks(ctx context.Context, status string) ([]tasks.Record, error)
	UpdateCurrentWeekGoal(ctx context.Context, goal string) (strategy.Week, error)
	SetStatus(ctx context.Context, ref string, status tasks.Status) (tasks.Record, error)
}

// StrategySource reads the company profile and this week's plan
type StrategySource interface {
	Profile(ctx context.Context) (strategy.Profile, error)
	CurrentWeek(ctx context.Context, now time.Time) (strategy.Week, error)
}

// Deps are the router's collaborators. Strategy and Transcriber are nil when
// their feature is off; Journal is nil when conversation logging is off.
type Deps struct {
	Messenger   Messenger
	Assistant   Assistant
	Tasks       TaskManager
	Classifier  *tasks.Classifier
	Strategy    StrategySource
	Transcriber speech.Transcriber
	Journal     *journal.Journal
}

// Options carry the settings the flows need
type Options struct {
	Company      string
	DefaultOwner string
	Speech       config.Speech
	Location     *time.Location
	PendingTTL   time.Duration
}

// Router handles one event at a time per requester and always replies
type Router struct {
	Deps
	opts      Options
	pending   *PendingStore
	proposals *ProposalStore
	now       func() time.Time
}

// NewRouter wires the flows
func NewRouter(deps Deps, opts Options) *Router {
	if deps.Classifier == nil {
		deps.Classifier = tasks.NewClassifier()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 15 * time.Minute
	}
	if opts.DefaultOwner == "" {
		opts.DefaultOwner = "User"
	}

	return &Router{
		Deps:      deps,
		opts:      opts,
		pending:   NewPendingStore(opts.PendingTTL),
		proposals: NewProposalStore(proposalTTL),
		now:       time.Now,
	}
}

// Handle dispatches the event to its flow. A pending action takes the
// requester's next plain text before the normal text flow.
func (r *Router) Handle(ctx context.Context, ev Event) {
	log.Printf("Handling %s event from %d", ev.Kind, ev.RequesterID)

	switch ev.Kind {
	case EventCommand:
		r.handleCommand(ctx, ev)
	case EventText:
		if action, ok := r.pending.Take(ev.RequesterID); ok {
			r.handlePending(ctx, ev, action)
			return
		}
		r.handleText(ctx, ev)
	case EventVoice:
		r.handleVoice(ctx, ev)
	case EventAction:
		r.handleAction(ctx, ev)
	default:
		log.Printf("Ignoring event of unknown kind %d", ev.Kind)
	}
}

func (r *Router) handleText(ctx context.Context, ev Event) {
	owner := r.owner(ev)
	r.Journal.Record(ctx, owner, ev.Text)

	reply, err := r.Assistant.Ask(ctx, ev.Text)
	if err != nil {
		log.Printf("Assistant failed for %d: %v", ev.RequesterID, err)
		reply = msgAIError
	} else {
		r.Journal.Record(ctx, journal.AI, reply)
	}
	r.send(ctx, ev.ChatID, reply)

	if !r.Classifier.LooksLikeTask(ev.Text) {
		return
	}

	proposal := r.Tasks.ProposeTask(ev.RequesterID, owner, ev.Text)
	r.proposals.Put(proposal)
	r.sendChoices(ctx, ev.ChatID, fmt.Sprintf(msgTaskPrompt, ev.Text), [][]Choice{{
		{Label: "✅ Добавить", Data: actionConfirm + ":" + proposal.Token},
		{Label: "❌ Отмена", Data: actionReject + ":" + proposal.Token},
	}})
}

func (r *Router) handleVoice(ctx context.Context, ev Event) {
	if r.Transcriber == nil {
		r.send(ctx, ev.ChatID, msgVoiceDisabled)
		return
	}

	data, err := r.Messenger.FetchFile(ctx, ev.FileID)
	if err != nil {
		log.Printf("Failed to fetch voice %s: %v", ev.FileID, err)
		r.send(ctx, ev.ChatID, msgVoiceFailed)
		return
	}

	transcript, err := r.Transcriber.Transcribe(ctx, speech.Audio{
		Data:            data,
		Encoding:        r.opts.Speech.Encoding,
		SampleRateHertz: r.opts.Speech.SampleRateHertz,
		LanguageCode:    r.opts.Speech.LanguageCode,
	})
	if err != nil {
		log.Printf("Transcription failed for %d: %v", ev.RequesterID, err)
		r.send(ctx, ev.ChatID, msgVoiceFailed)
		return
	}

	r.send(ctx, ev.ChatID, fmt.Sprintf(msgVoiceTranscript, transcript))
	r.Journal.Record(ctx, r.owner(ev), transcript)

	if _, err := r.Tasks.RecordTranscript(ctx, ev.RequesterID, r.owner(ev), transcript); err != nil {
		log.Printf("Failed to store transcript for %d: %v", ev.RequesterID, err)
		r.send(ctx, ev.ChatID, msgVoiceSaveFailed)
		return
	}
	r.send(ctx, ev.ChatID, msgVoiceSaved)
}

func (r *Router) handlePending(ctx context.Context, ev Event, action string) {
	switch action {
	case PendingUpdateGoal:
		r.completeGoalUpdate(ctx, ev)
	default:
		log.Printf("Dropping unknown pending action %q for %d", action, ev.RequesterID)
		r.handleText(ctx, ev)
	}
}

func (r *Router) completeGoalUpdate(ctx context.Context, ev Event) {
	goal := strings.TrimSpace(ev.Text)
	if goal == "" {
		r.pending.Set(ev.RequesterID, PendingUpdateGoal)
		r.send(ctx, ev.ChatID, msgEmptyGoal)
		return
	}

	label := strategy.WeekLabel(r.now().In(r.opts.Location))
	week, err := r.Tasks.UpdateCurrentWeekGoal(ctx, goal)
	switch {
	case err == nil:
		r.send(ctx, ev.ChatID, fmt.Sprintf(msgGoalUpdated, week.Label, week.Goal))
	case errors.Is(err, apperr.ErrNotFound):
		r.send(ctx, ev.ChatID, fmt.Sprintf(msgGoalWeekAbsent, label))
	default:
		log.Printf("Failed to update goal for %s: %v", label, err)
		r.send(ctx, ev.ChatID, apology(err))
	}
}

// owner is the requester's display name or the configured placeholder
func (r *Router) owner(ev Event) string {
	if name := strings.TrimSpace(ev.Name); name != "" {
		return name
	}
	return r.opts.DefaultOwner
}

func (r *Router) send(ctx context.Context, chatID int64, text string) {
	if _, err := r.Messenger.Send(ctx, chatID, text); err != nil {
		log.Printf("Failed to send message to %d: %v", chatID, err)
	}
}

func (r *Router) sendChoices(ctx context.Context, chatID int64, text string, rows [][]Choice) {
	if _, err := r.Messenger.SendChoices(ctx, chatID, text, rows); err != nil {
		log.Printf("Failed to send choices to %d: %v", chatID, err)
	}
}

func (r *Router) edit(ctx context.Context, chatID int64, messageID int, text string) {
	if err := r.Messenger.Edit(ctx, chatID, messageID, text); err != nil {
		log.Printf("Failed to edit message %d in %d: %v", messageID, chatID, err)
	}
}

func (r *Router) ack(ctx context.Context, actionID, text string) {
	if err := r.Messenger.AckAction(ctx, actionID, text); err != nil {
		log.Printf("Failed to acknowledge action %s: %v", actionID, err)
	}
}

// apology picks the user-visible message for a failed flow
func apology(err error) string {
	switch {
	case errors.Is(err, apperr.ErrStoreWrite):
		return msgStoreWriteError
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return msgStoreReadError
	}
	return msgAIError
}
