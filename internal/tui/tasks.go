package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alexrabarts/ceo-agent/internal/api"
	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

const requestTimeout = 15 * time.Second

// TasksModel is one status tab: a table of tasks in that status
type TasksModel struct {
	backend Backend
	status  string
	table   table.Model
	tasks   []api.TaskResponse
	loading bool
	err     error
	notice  string
}

type tasksLoadedMsg struct {
	status string
	tasks  []api.TaskResponse
	err    error
}

type statusChangedMsg struct {
	tab  string
	task api.TaskResponse
	err  error
}

var taskColumns = []table.Column{
	{Title: "Ref", Width: 10},
	{Title: "Created", Width: 16},
	{Title: "Owner", Width: 12},
	{Title: "Status", Width: 14},
	{Title: "Task", Width: 50},
}

// NewTasksModel creates a tab listing tasks in status ("" for all)
func NewTasksModel(backend Backend, status string) TasksModel {
	t := table.New(
		table.WithColumns(taskColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("236")).
		Bold(false)
	t.SetStyles(styles)

	return TasksModel{
		backend: backend,
		status:  status,
		table:   t,
		loading: true,
	}
}

func (m TasksModel) fetchTasks() tea.Cmd {
	backend, status := m.backend, m.status
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := backend.ListTasks(ctx, status)
		return tasksLoadedMsg{status: status, tasks: list, err: err}
	}
}

// advance moves the selected task to its next status
func (m TasksModel) advance() tea.Cmd {
	task, ok := m.Selected()
	if !ok {
		return nil
	}
	next := tasks.ParseStatus(task.Status).Next()
	if next == tasks.ParseStatus(task.Status) {
		return nil
	}

	backend, tab := m.backend, m.status
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		updated, err := backend.SetStatus(ctx, task.Ref, string(next))
		return statusChangedMsg{tab: tab, task: updated, err: err}
	}
}

// Selected returns the task under the cursor
func (m TasksModel) Selected() (api.TaskResponse, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.tasks) {
		return api.TaskResponse{}, false
	}
	return m.tasks[i], true
}

func (m *TasksModel) SetSize(width, height int) {
	m.table.SetHeight(height - 2)
	m.table.SetWidth(width)

	// The task text takes whatever the fixed columns leave
	cols := make([]table.Column, len(taskColumns))
	copy(cols, taskColumns)
	used := 0
	for _, c := range cols[:len(cols)-1] {
		used += c.Width + 2
	}
	if rest := width - used - 2; rest > 20 {
		cols[len(cols)-1].Width = rest
	}
	m.table.SetColumns(cols)
}

func (m TasksModel) Update(msg tea.Msg) (TasksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		// A reply for a tab we already left
		if msg.status != m.status {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.tasks = msg.tasks
			m.table.SetRows(taskRows(msg.tasks))
			if m.table.Cursor() >= len(msg.tasks) {
				m.table.SetCursor(max(len(msg.tasks)-1, 0))
			}
		}
		return m, nil

	case statusChangedMsg:
		if msg.tab != m.status {
			return m, nil
		}
		if msg.err != nil {
			m.notice = fmt.Sprintf("Status change failed: %v", msg.err)
			return m, nil
		}
		m.notice = fmt.Sprintf("%s → %s", msg.task.Ref, tasks.Status(msg.task.Status).Label())
		return m, m.fetchTasks()

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.notice = ""
			return m, m.advance()
		case "r":
			m.loading = true
			return m, m.fetchTasks()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func taskRows(list []api.TaskResponse) []table.Row {
	rows := make([]table.Row, 0, len(list))
	for _, task := range list {
		created := ""
		if t, err := time.Parse(time.RFC3339, task.CreatedAt); err == nil {
			created = t.Format("2006-01-02 15:04")
		}

		status := tasks.Status(task.Status).Label()
		if task.RawStatus != "" {
			status = task.RawStatus
		}

		rows = append(rows, table.Row{
			shortRef(task.Ref),
			created,
			task.Owner,
			status,
			strings.ReplaceAll(task.Text, "\n", " "),
		})
	}
	return rows
}

// shortRef keeps the head of a uuid, enough to tell tasks apart on screen
func shortRef(ref string) string {
	if len(ref) > 8 && !strings.HasPrefix(ref, "row-") {
		return ref[:8]
	}
	return ref
}

func (m TasksModel) View() string {
	if m.loading && len(m.tasks) == 0 {
		return "Loading tasks..."
	}

	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Padding(1)
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	if len(m.tasks) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(1)
		return emptyStyle.Render("No tasks here.")
	}

	var b strings.Builder
	b.WriteString(m.table.View())

	if task, ok := m.Selected(); ok && task.Notes != "" {
		notesStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(1, 0, 0, 1)
		b.WriteString("\n")
		b.WriteString(notesStyle.Render("Notes: " + task.Notes))
	}

	if m.notice != "" {
		noticeStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Padding(1, 0, 0, 1)
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
	}

	return b.String()
}
