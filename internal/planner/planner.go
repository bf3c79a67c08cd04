// Package planner builds the model context from the company's own data and
// generates the scheduled reports.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/llm"
	"github.com/alexrabarts/ceo-agent/internal/strategy"
)

// ContextSource supplies the company profile and strategy plan
type ContextSource interface {
	Profile(ctx context.Context) (strategy.Profile, error)
	Weeks(ctx context.Context) ([]strategy.Week, error)
}

// CompletedTasks supplies the texts of finished tasks
type CompletedTasks interface {
	SummarizeCompletedTasks(ctx context.Context) ([]string, error)
}

// Planner assembles prompts and calls the model
type Planner struct {
	llm     llm.Client
	prompts *llm.PromptBuilder
	source  ContextSource
	tasks   CompletedTasks
}

// New creates a planner. source may be nil when the strategy feature is
// off; the system prompt is then the persona alone.
func New(client llm.Client, prompts *llm.PromptBuilder, source ContextSource, tasks CompletedTasks) *Planner {
	return &Planner{
		llm:     client,
		prompts: prompts,
		source:  source,
		tasks:   tasks,
	}
}

// BuildSystemPrompt reads the profile and plan fresh on every call
func (p *Planner) BuildSystemPrompt(ctx context.Context) (string, error) {
	var prompt strings.Builder
	prompt.WriteString(p.prompts.Persona())

	if p.source == nil {
		return prompt.String(), nil
	}

	profile, err := p.source.Profile(ctx)
	if err != nil {
		return "", upstream("company profile", err)
	}
	weeks, err := p.source.Weeks(ctx)
	if err != nil {
		return "", upstream("strategy plan", err)
	}

	if len(profile) > 0 {
		prompt.WriteString("\n\nПрофиль компании:\n")
		for _, entry := range profile {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", entry.Key, entry.Value))
		}
	}

	if len(weeks) > 0 {
		prompt.WriteString("\nСтратегический план:\n")
		for _, week := range weeks {
			prompt.WriteString(fmt.Sprintf("Week %s [%s]: %s\n", week.Label, week.Focus, week.Goal))
		}
	}

	return strings.TrimRight(prompt.String(), "\n"), nil
}

// Ask answers a user message with the company context as system prompt
func (p *Planner) Ask(ctx context.Context, userText string) (string, error) {
	system, err := p.BuildSystemPrompt(ctx)
	if err != nil {
		return "", err
	}
	return p.llm.Generate(ctx, llm.Conversation(system, userText))
}

// GenerateDailyReport runs the static market-analysis prompt
func (p *Planner) GenerateDailyReport(ctx context.Context) (string, error) {
	report, err := p.llm.Generate(ctx, llm.Conversation(p.prompts.Persona(), p.prompts.DailyReport()))
	if err != nil {
		return "", err
	}
	log.Printf("Daily report generated (%d chars)", len(report))
	return report, nil
}

// GenerateWeeklySuggestions proposes next week's tasks from the completed ones
func (p *Planner) GenerateWeeklySuggestions(ctx context.Context) (string, error) {
	done, err := p.tasks.SummarizeCompletedTasks(ctx)
	if err != nil {
		return "", upstream("completed tasks", err)
	}

	system, err := p.BuildSystemPrompt(ctx)
	if err != nil {
		// Suggestions still make sense without the plan
		log.Printf("Weekly suggestions without company context: %v", err)
		system = p.prompts.Persona()
	}

	suggestions, err := p.llm.Generate(ctx, llm.Conversation(system, p.prompts.WeeklySuggestions(done)))
	if err != nil {
		return "", err
	}
	log.Printf("Weekly suggestions generated from %d completed tasks", len(done))
	return suggestions, nil
}

func upstream(op string, err error) error {
	if errors.Is(err, apperr.ErrUpstreamUnavailable) {
		return err
	}
	return apperr.Upstream(op, err)
}
