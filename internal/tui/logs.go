package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const logCapacity = 200

// LogsModel scrolls through the captured log lines
type LogsModel struct {
	buffer   *LogBuffer
	viewport viewport.Model
}

func NewLogsModel(buffer *LogBuffer) LogsModel {
	return LogsModel{
		buffer:   buffer,
		viewport: viewport.New(80, 20),
	}
}

func (m *LogsModel) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
}

// Refresh reloads the viewport from the buffer, oldest line first
func (m *LogsModel) Refresh() {
	if m.buffer == nil {
		m.viewport.SetContent("Logging to stderr.")
		return
	}

	entries := m.buffer.Recent(logCapacity)
	lines := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		lines = append(lines, fmt.Sprintf("%s  %s", e.Timestamp.Format("15:04:05"), e.Message))
	}
	if len(lines) == 0 {
		lines = append(lines, "No log output yet.")
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m LogsModel) Update(msg tea.Msg) (LogsModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m LogsModel) View() string {
	return m.viewport.View()
}
