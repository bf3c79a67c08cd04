package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/config"
)

// FallbackClient tries each client in order and returns the first reply
type FallbackClient struct {
	clients []Client
}

// NewFallbackClient builds the chain. Nil clients are skipped.
func NewFallbackClient(primary Client, fallbacks ...Client) *FallbackClient {
	f := &FallbackClient{}
	for _, c := range append([]Client{primary}, fallbacks...) {
		if c == nil {
			continue
		}
		f.clients = append(f.clients, c)
	}
	return f
}

// Generate returns the first successful reply. The last error is returned
// when every client fails.
func (f *FallbackClient) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(f.clients) == 0 {
		return "", apperr.Upstream("llm", nil)
	}

	var lastErr error
	for i, client := range f.clients {
		text, err := client.Generate(ctx, messages)
		if err == nil {
			if i > 0 {
				log.Printf("✓ LLM fallback %d succeeded", i)
			}
			return text, nil
		}
		lastErr = err
		if i < len(f.clients)-1 {
			log.Printf("⚠ LLM client %d failed: %v, trying fallback", i, err)
		}
	}

	return "", lastErr
}

// Close closes every client that holds resources
func (f *FallbackClient) Close() error {
	var firstErr error
	for _, c := range f.clients {
		if closer, ok := c.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// New builds the provider chain configured in ai.provider and ai.fallback
func New(ctx context.Context, cfg *config.Config, usage UsageLogger) (*FallbackClient, error) {
	var chain []Client
	for _, provider := range []string{cfg.AI.Provider, cfg.AI.Fallback} {
		switch provider {
		case "":
		case "openrouter":
			chain = append(chain, NewOpenRouterClient(cfg.AI, usage))
			log.Printf("LLM client initialized: openrouter (model: %s)", cfg.AI.Model)
		case "gemini":
			gemini, err := NewGeminiClient(ctx, cfg.Gemini, cfg.AI, usage)
			if err != nil {
				return nil, err
			}
			chain = append(chain, gemini)
			log.Printf("LLM client initialized: gemini (model: %s)", cfg.Gemini.Model)
		default:
			return nil, fmt.Errorf("unknown ai provider %q", provider)
		}
	}

	if len(chain) == 0 {
		return nil, fmt.Errorf("no ai provider configured")
	}
	return NewFallbackClient(chain[0], chain[1:]...), nil
}
