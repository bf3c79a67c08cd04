// Package llm talks to the hosted language models that write every reply.
package llm

import (
	"context"
	"time"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation sent to a model
type Message struct {
	Role    string
	Content string
}

// Client generates a reply for a conversation. Every failure is reported
// as apperr.ErrUpstreamUnavailable.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// UsageLogger records one model call. *db.DB satisfies it.
type UsageLogger interface {
	LogUsage(service, action string, tokens int, duration time.Duration, err error) error
}

// Conversation builds the usual system + user pair
func Conversation(system, user string) []Message {
	var messages []Message
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	return append(messages, Message{Role: RoleUser, Content: user})
}

// estimateTokens approximates token usage when a provider does not report it
func estimateTokens(text string) int {
	return len([]rune(text)) / 4
}
