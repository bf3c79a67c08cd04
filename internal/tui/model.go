// Package tui is a terminal browser for the task sheet.
package tui

import (
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

type statusTab struct {
	label  string
	status string
}

var statusTabs = []statusTab{
	{"All", ""},
	{"New", string(tasks.StatusNew)},
	{"In progress", string(tasks.StatusInProgress)},
	{"Done", string(tasks.StatusDone)},
	{"Unknown", string(tasks.StatusUnknown)},
}

// Views after the status tabs
const (
	usageTab = iota
	logTab
	extraTabs
)

// tickMsg is sent when it's time to refresh
type tickMsg struct{}

// tick returns a command that sends a tickMsg after the configured interval
func tick(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

type Model struct {
	current int
	width   int
	height  int

	title    string
	interval time.Duration

	// Sub-models
	taskTabs   []TasksModel
	usageModel UsageModel
	logsModel  LogsModel

	// State
	lastRefreshTime time.Time
	logBuffer       *LogBuffer
}

// NewModel builds the TUI. interval is the auto refresh period, zero disables it.
func NewModel(backend Backend, title string, interval time.Duration, logBuffer *LogBuffer) Model {
	taskTabs := make([]TasksModel, len(statusTabs))
	for i, tab := range statusTabs {
		taskTabs[i] = NewTasksModel(backend, tab.status)
	}

	return Model{
		title:           title,
		interval:        interval,
		taskTabs:        taskTabs,
		usageModel:      NewUsageModel(backend),
		logsModel:       NewLogsModel(logBuffer),
		lastRefreshTime: time.Now(),
		logBuffer:       logBuffer,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.taskTabs[0].fetchTasks(),
		m.usageModel.fetchUsage(),
		tick(m.interval),
	)
}

func (m Model) tabCount() int {
	return len(statusTabs) + extraTabs
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Content area: total minus header, footer and margins
		contentHeight := m.height - 3 - 2 - 4
		if contentHeight < 10 {
			contentHeight = 10
		}

		for i := range m.taskTabs {
			m.taskTabs[i].SetSize(m.width-4, contentHeight)
		}
		m.logsModel.SetSize(m.width-4, contentHeight)
		m.logsModel.Refresh()

		return m, nil

	case tickMsg:
		m.lastRefreshTime = time.Now()
		return m, tea.Batch(m.refreshCurrentView(), tick(m.interval))

	case tasksLoadedMsg, statusChangedMsg:
		// Route to the tab that asked, even if the user moved on
		var cmds []tea.Cmd
		for i := range m.taskTabs {
			var cmd tea.Cmd
			m.taskTabs[i], cmd = m.taskTabs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case usageLoadedMsg:
		var cmd tea.Cmd
		m.usageModel, cmd = m.usageModel.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "left", "h":
			m.current = (m.current - 1 + m.tabCount()) % m.tabCount()
			return m, m.refreshCurrentView()

		case "right", "l", "tab":
			m.current = (m.current + 1) % m.tabCount()
			return m, m.refreshCurrentView()
		}
	}

	var cmd tea.Cmd
	switch {
	case m.current < len(m.taskTabs):
		m.taskTabs[m.current], cmd = m.taskTabs[m.current].Update(msg)
	case m.current == len(statusTabs)+usageTab:
		m.usageModel, cmd = m.usageModel.Update(msg)
	case m.current == len(statusTabs)+logTab:
		m.logsModel, cmd = m.logsModel.Update(msg)
	}

	return m, cmd
}

func (m *Model) refreshCurrentView() tea.Cmd {
	switch {
	case m.current < len(m.taskTabs):
		return m.taskTabs[m.current].fetchTasks()
	case m.current == len(statusTabs)+usageTab:
		return m.usageModel.fetchUsage()
	case m.current == len(statusTabs)+logTab:
		m.logsModel.Refresh()
	}
	return nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch {
	case m.current < len(m.taskTabs):
		content = m.taskTabs[m.current].View()
	case m.current == len(statusTabs)+usageTab:
		content = m.usageModel.View()
	case m.current == len(statusTabs)+logTab:
		content = m.logsModel.View()
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", m.renderHeader(), content, m.renderFooter())
}

func (m Model) tabLabels() []string {
	labels := make([]string, 0, m.tabCount())
	for _, tab := range statusTabs {
		labels = append(labels, tab.label)
	}
	return append(labels, "Usage", "Log")
}

func (m Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Padding(0, 1)

	tabStyle := lipgloss.NewStyle().
		Padding(0, 2)

	activeTabStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("236")).
		Padding(0, 2)

	tabs := ""
	for i, label := range m.tabLabels() {
		if i == m.current {
			tabs += activeTabStyle.Render(label)
		} else {
			tabs += tabStyle.Render(label)
		}
	}

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)

	return headerStyle.Render(titleStyle.Render(m.title) + "  " + tabs)
}

func (m Model) renderFooter() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)

	logStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Padding(0, 1)

	footer := "q: quit | ←/→: switch tabs | ↑/↓: navigate | enter: next status | r: refresh"

	if m.interval > 0 {
		footer += fmt.Sprintf(" | %s", formatLastRefresh(m.lastRefreshTime, time.Now()))
	}

	footerText := helpStyle.Render(footer)

	// Surface fresh background log lines
	if m.logBuffer != nil {
		if latest := m.logBuffer.Latest(); latest != nil && time.Since(latest.Timestamp) < 10*time.Second {
			msg := []rune(latest.Message)
			if len(msg) > 100 {
				msg = append(msg[:97], []rune("...")...)
			}
			footerText += "\n" + logStyle.Render(fmt.Sprintf("⚙️  %s", string(msg)))
		}
	}

	return footerText
}

// formatLastRefresh returns a human-readable string for when data was last refreshed
func formatLastRefresh(last, now time.Time) string {
	if last.IsZero() {
		return "Updated: never"
	}

	elapsed := now.Sub(last)
	switch {
	case elapsed < 30*time.Second:
		return "Updated: just now"
	case elapsed < time.Minute:
		return fmt.Sprintf("Updated: %ds ago", int(elapsed.Seconds()))
	case elapsed < time.Hour:
		return fmt.Sprintf("Updated: %dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("Updated: %dh ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("Updated: %s", last.Format("15:04"))
	}
}

// Start runs the TUI until the user quits. Log output is captured for the
// footer and the Log tab while it runs.
func Start(backend Backend, title string, interval time.Duration) error {
	logBuffer := NewLogBuffer(logCapacity)

	originalOutput := log.Writer()
	log.SetOutput(logBuffer)
	defer log.SetOutput(originalOutput)

	// Direct stderr writes would tear the alt screen
	originalStderr := os.Stderr
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err == nil {
		os.Stderr = devNull
		defer func() {
			os.Stderr = originalStderr
			devNull.Close()
		}()
	}

	p := tea.NewProgram(NewModel(backend, title, interval, logBuffer), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
