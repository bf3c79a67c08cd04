package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/config"
)

// OpenRouterClient calls an OpenAI-compatible chat completions endpoint,
// OpenRouter by default.
type OpenRouterClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	limiter     *rate.Limiter
	maxRetries  int
	baseDelay   time.Duration
	usage       UsageLogger
}

// NewOpenRouterClient creates a client from the ai config section. usage may be nil.
func NewOpenRouterClient(cfg config.AI, usage UsageLogger) *OpenRouterClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	perMinute := cfg.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}

	return &OpenRouterClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		maxRetries:  cfg.MaxRetries,
		baseDelay:   time.Duration(cfg.BaseRetryDelay) * time.Second,
		usage:       usage,
	}
}

// Generate sends the conversation and returns the first choice. Rate limits,
// server errors and network failures are retried with exponential backoff.
func (c *OpenRouterClient) Generate(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAI(messages),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<(attempt-1))
			log.Printf("⚠ OpenRouter call failed (attempt %d/%d): %v - retrying in %s",
				attempt, c.maxRetries+1, lastErr, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", apperr.Upstream("openrouter", ctx.Err())
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", apperr.Upstream("openrouter rate limit", err)
		}

		text, err := c.complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	return "", apperr.Upstream("openrouter", lastErr)
}

func (c *OpenRouterClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logUsage(0, time.Since(startTime), err)
		return "", err
	}

	if len(resp.Choices) == 0 {
		err := errors.New("response has no choices")
		c.logUsage(resp.Usage.TotalTokens, time.Since(startTime), err)
		return "", err
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		err := errors.New("response content is empty")
		c.logUsage(resp.Usage.TotalTokens, time.Since(startTime), err)
		return "", err
	}

	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		tokens = estimateTokens(text)
	}
	c.logUsage(tokens, time.Since(startTime), nil)

	return text, nil
}

func (c *OpenRouterClient) logUsage(tokens int, duration time.Duration, err error) {
	if c.usage == nil {
		return
	}
	if logErr := c.usage.LogUsage("openrouter", "chat", tokens, duration, err); logErr != nil {
		log.Printf("Failed to log usage: %v", logErr)
	}
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// isRetryable reports whether a failed call is worth repeating
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "no choices")
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// String describes the client for logs
func (c *OpenRouterClient) String() string {
	return fmt.Sprintf("openrouter(%s)", c.model)
}
