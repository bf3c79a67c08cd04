package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/config"
)

// GeminiClient handles Gemini API operations
type GeminiClient struct {
	client    *genai.Client
	modelName string
	cfg       config.AI
	usage     UsageLogger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, gemini config.Gemini, ai config.AI, usage UsageLogger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(gemini.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: gemini.Model,
		cfg:       ai,
		usage:     usage,
	}, nil
}

// Close closes the Gemini client
func (g *GeminiClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Generate runs the conversation as a chat session; system messages become
// the model's system instruction.
func (g *GeminiClient) Generate(ctx context.Context, messages []Message) (string, error) {
	system, history, last, err := splitForGemini(messages)
	if err != nil {
		return "", apperr.Upstream("gemini", err)
	}

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(g.cfg.Temperature)
	if g.cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.cfg.MaxTokens))
	}

	// Safety settings - allow most content for business use
	model.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockOnlyHigh,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockOnlyHigh,
		},
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: genai.HarmBlockOnlyHigh,
		},
	}

	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	session := model.StartChat()
	for _, m := range history {
		session.History = append(session.History, &genai.Content{
			Role:  m.Role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	startTime := time.Now()
	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		g.logUsage(0, time.Since(startTime), err)
		return "", apperr.Upstream("gemini", err)
	}

	text := extractText(resp)
	if text == "" {
		err := errors.New("response has no text")
		g.logUsage(0, time.Since(startTime), err)
		return "", apperr.Upstream("gemini", err)
	}

	tokens := estimateTokens(system + last + text)
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	g.logUsage(tokens, time.Since(startTime), nil)

	return text, nil
}

func (g *GeminiClient) logUsage(tokens int, duration time.Duration, err error) {
	if g.usage == nil {
		return
	}
	if logErr := g.usage.LogUsage("gemini", "chat", tokens, duration, err); logErr != nil {
		log.Printf("Failed to log usage: %v", logErr)
	}
}

// geminiTurn is a history entry with Gemini's role names
type geminiTurn struct {
	Role    string
	Content string
}

// splitForGemini separates system text, prior turns and the final user
// message. Gemini calls the assistant role "model".
func splitForGemini(messages []Message) (system string, history []geminiTurn, last string, err error) {
	var systemParts []string
	var turns []geminiTurn
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Content)
		case RoleAssistant:
			turns = append(turns, geminiTurn{Role: "model", Content: m.Content})
		default:
			turns = append(turns, geminiTurn{Role: "user", Content: m.Content})
		}
	}

	if len(turns) == 0 || turns[len(turns)-1].Role != "user" {
		return "", nil, "", errors.New("conversation must end with a user message")
	}

	last = turns[len(turns)-1].Content
	return strings.Join(systemParts, "\n\n"), turns[:len(turns)-1], last, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	var result strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				result.WriteString(string(text))
			}
		}
		break
	}

	return strings.TrimSpace(result.String())
}
