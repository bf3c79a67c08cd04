// Package bot routes chat events through the assistant, the task manager
// and the strategy plan, and adapts them to Telegram.
package bot

import "context"

// EventKind tells the router which flow handles an event
type EventKind int

const (
	EventText EventKind = iota
	EventVoice
	EventAction
	EventCommand
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventVoice:
		return "voice"
	case EventAction:
		return "action"
	case EventCommand:
		return "command"
	}
	return "unknown"
}

// Event is one inbound update, independent of the transport
type Event struct {
	Kind        EventKind
	RequesterID int64
	ChatID      int64
	MessageID   int
	Name        string

	Text    string // EventText
	Command string // EventCommand, without the slash
	Args    string
	FileID  string // EventVoice

	// EventAction: the button press id and its callback data
	ActionID string
	Data     string
}

// Choice is one inline button
type Choice struct {
	Label string
	Data  string
}

// Messenger delivers replies. Errors are reported as apperr.ErrTransport and
// are only logged by the router.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
	SendChoices(ctx context.Context, chatID int64, text string, rows [][]Choice) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	AckAction(ctx context.Context, actionID, text string) error
	FetchFile(ctx context.Context, fileID string) ([]byte, error)
}
