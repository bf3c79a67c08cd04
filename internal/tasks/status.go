package tasks

import "strings"

// Status is the lifecycle state of a task
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"

	// StatusUnknown marks free text in the status column that is none of the above
	StatusUnknown Status = "unknown"
)

// Statuses lists the known states in lifecycle order
var Statuses = []Status{StatusNew, StatusInProgress, StatusDone}

var statusAliases = map[string]Status{
	"new":         StatusNew,
	"новая":       StatusNew,
	"новый":       StatusNew,
	"новое":       StatusNew,
	"in_progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"doing":       StatusInProgress,
	"в_работе":    StatusInProgress,
	"done":        StatusDone,
	"completed":   StatusDone,
	"готово":      StatusDone,
	"сделано":     StatusDone,
	"выполнено":   StatusDone,
	"unknown":     StatusUnknown,
}

// ParseStatus normalizes a status cell. Case, surrounding space and the
// separator in "in progress" / "in-progress" are ignored; anything
// unrecognized is StatusUnknown, never StatusNew.
func ParseStatus(s string) Status {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")

	if status, ok := statusAliases[key]; ok {
		return status
	}
	return StatusUnknown
}

// Known reports whether s is one of the lifecycle states
func (s Status) Known() bool {
	return s == StatusNew || s == StatusInProgress || s == StatusDone
}

// Next returns the following lifecycle state; done stays done
func (s Status) Next() Status {
	switch s {
	case StatusNew:
		return StatusInProgress
	case StatusInProgress:
		return StatusDone
	case StatusDone:
		return StatusDone
	}
	return StatusNew
}

// Label is the Russian name shown to users
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "🆕 Новая"
	case StatusInProgress:
		return "⏳ В работе"
	case StatusDone:
		return "✅ Готово"
	}
	return "❔ Неизвестно"
}
