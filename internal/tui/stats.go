package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alexrabarts/ceo-agent/internal/api"
)

const usageDays = 7

// UsageModel shows external API usage over the last week
type UsageModel struct {
	backend Backend
	usage   []api.UsageResponse
	loading bool
	err     error
}

type usageLoadedMsg struct {
	usage []api.UsageResponse
	err   error
}

func NewUsageModel(backend Backend) UsageModel {
	return UsageModel{
		backend: backend,
		loading: true,
	}
}

func (m UsageModel) fetchUsage() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		usage, err := backend.Usage(ctx, usageDays)
		return usageLoadedMsg{usage: usage, err: err}
	}
}

func (m UsageModel) Update(msg tea.Msg) (UsageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case usageLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.usage = msg.usage
	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.fetchUsage()
		}
	}
	return m, nil
}

func (m UsageModel) View() string {
	if m.loading {
		return "Loading usage..."
	}

	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Padding(1)
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Padding(0, 1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Width(14).
		Padding(0, 1)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("255"))

	failStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("📊 External API usage, last %d days", usageDays)) + "\n\n")

	if len(m.usage) == 0 {
		b.WriteString(labelStyle.Render("No calls recorded."))
		return b.String()
	}

	for _, u := range m.usage {
		line := fmt.Sprintf("%d calls, %d tokens, avg %dms", u.Calls, u.Tokens, u.AvgMs)
		b.WriteString(labelStyle.Render(u.Service))
		b.WriteString(valueStyle.Render(line))
		if u.Failures > 0 {
			b.WriteString(failStyle.Render(fmt.Sprintf(", %d failed", u.Failures)))
		}
		b.WriteString("\n")
	}

	return b.String()
}
