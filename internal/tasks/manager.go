// Package tasks classifies messages and manages the task sheet.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/sheets"
	"github.com/alexrabarts/ceo-agent/internal/strategy"
)

// Column layout of the task sheet
const (
	colCreatedAt = iota
	colText
	colOwner
	colStatus
	colNotes
	colID
	rowWidth
)

// Record is one row of the task sheet
type Record struct {
	ID        string
	CreatedAt time.Time
	Text      string
	Owner     string
	Status    Status
	RawStatus string
	Notes     string
	Row       int
}

// Ref addresses the record: its id, or "row-N" for legacy rows without one
func (r Record) Ref() string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("row-%d", r.Row)
}

// Proposal is a task awaiting confirmation. Nothing is stored until it is confirmed.
type Proposal struct {
	Token       string
	RequesterID int64
	Owner       string
	Text        string
	ProposedAt  time.Time
}

// GoalUpdater rewrites the goal of the current strategy week
type GoalUpdater interface {
	UpdateGoal(ctx context.Context, now time.Time, goal string) (strategy.Week, error)
}

// Manager owns the task lifecycle
type Manager struct {
	store        sheets.Store
	sheet        string
	plan         GoalUpdater
	location     *time.Location
	defaultOwner string

	// now is replaced in tests
	now func() time.Time
}

// NewManager creates a manager for the named task sheet. plan may be nil
// when the strategy feature is off.
func NewManager(store sheets.Store, sheet string, plan GoalUpdater, location *time.Location, defaultOwner string) *Manager {
	if location == nil {
		location = time.Local
	}
	if defaultOwner == "" {
		defaultOwner = "User"
	}
	return &Manager{
		store:        store,
		sheet:        sheet,
		plan:         plan,
		location:     location,
		defaultOwner: defaultOwner,
		now:          time.Now,
	}
}

// ProposeTask wraps text with a confirmation token
func (m *Manager) ProposeTask(requesterID int64, owner, text string) Proposal {
	if strings.TrimSpace(owner) == "" {
		owner = m.defaultOwner
	}
	return Proposal{
		Token:       uuid.NewString(),
		RequesterID: requesterID,
		Owner:       owner,
		Text:        text,
		ProposedAt:  m.now(),
	}
}

// ConfirmTask appends the proposal as a new task
func (m *Manager) ConfirmTask(ctx context.Context, p Proposal) (Record, error) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return Record{}, apperr.StoreWrite("append task", errors.New("task text is empty"))
	}

	owner := p.Owner
	if strings.TrimSpace(owner) == "" {
		owner = m.defaultOwner
	}

	rec := Record{
		ID:        uuid.NewString(),
		CreatedAt: m.now().In(m.location),
		Text:      text,
		Owner:     owner,
		Status:    StatusNew,
		RawStatus: string(StatusNew),
	}

	if err := m.store.AppendRow(ctx, m.sheet, rec.cells()); err != nil {
		return Record{}, err
	}

	log.Printf("Task %s created by %s", rec.ID, rec.Owner)
	return rec, nil
}

// RejectTask drops the proposal
func (m *Manager) RejectTask(p Proposal) {
	log.Printf("Task proposal %s rejected", p.Token)
}

// RecordTranscript stores a voice transcript as a task without classification
func (m *Manager) RecordTranscript(ctx context.Context, requesterID int64, owner, text string) (Record, error) {
	return m.ConfirmTask(ctx, m.ProposeTask(requesterID, owner, text))
}

// ListTasks returns tasks with the given status in sheet order. An empty
// status returns every task. The result is never nil on success.
func (m *Manager) ListTasks(ctx context.Context, status string) ([]Record, error) {
	all, err := m.readAll(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(status) == "" {
		return all, nil
	}

	status = strings.TrimSpace(status)
	want := ParseStatus(status)
	wantUnknown := strings.EqualFold(status, string(StatusUnknown))

	matched := []Record{}
	for _, rec := range all {
		switch {
		case want.Known() && rec.Status == want,
			wantUnknown && rec.Status == StatusUnknown,
			strings.EqualFold(strings.TrimSpace(rec.RawStatus), status):
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// SummarizeCompletedTasks returns the text of every done task in sheet order
func (m *Manager) SummarizeCompletedTasks(ctx context.Context) ([]string, error) {
	done, err := m.ListTasks(ctx, string(StatusDone))
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(done))
	for _, rec := range done {
		texts = append(texts, rec.Text)
	}
	return texts, nil
}

// UpdateCurrentWeekGoal replaces the goal of this week's strategy row
func (m *Manager) UpdateCurrentWeekGoal(ctx context.Context, goal string) (strategy.Week, error) {
	if m.plan == nil {
		return strategy.Week{}, apperr.NotFound("strategy plan")
	}
	return m.plan.UpdateGoal(ctx, m.now().In(m.location), goal)
}

// SetStatus moves the task addressed by ref to status. The row is re-read
// before the write and must still hold the same task. Legacy rows get an id.
func (m *Manager) SetStatus(ctx context.Context, ref string, status Status) (Record, error) {
	if !status.Known() {
		return Record{}, fmt.Errorf("invalid status %q", status)
	}

	all, err := m.readAll(ctx)
	if err != nil {
		return Record{}, err
	}

	var target *Record
	for i := range all {
		if all[i].Ref() == ref {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return Record{}, apperr.NotFound("task " + ref)
	}

	rows, err := m.store.ReadRange(ctx, m.sheet, sheets.RowA1(target.Row, rowWidth))
	if err != nil {
		return Record{}, err
	}
	if len(rows) == 0 {
		return Record{}, apperr.NotFound("task " + ref)
	}
	current := parseRecord(rows[0], target.Row)
	if current.Ref() != ref {
		return Record{}, apperr.NotFound(fmt.Sprintf("task %s moved from row %d", ref, target.Row))
	}

	cells := padded(rows[0])
	cells[colStatus] = string(status)
	if cells[colID] == "" {
		cells[colID] = uuid.NewString()
	}

	if err := m.store.UpdateRow(ctx, m.sheet, target.Row, cells); err != nil {
		return Record{}, err
	}

	updated := parseRecord(cells, target.Row)
	log.Printf("Task %s: %s -> %s", updated.ID, current.Status, updated.Status)
	return updated, nil
}

func (m *Manager) readAll(ctx context.Context) ([]Record, error) {
	rows, err := m.store.ReadRange(ctx, m.sheet, "A2:F")
	if err != nil {
		return nil, err
	}

	records := []Record{}
	for i, row := range rows {
		rec := parseRecord(row, i+2)
		if rec.Text == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(row []string, rowNum int) Record {
	raw := sheets.Cell(row, colStatus)
	return Record{
		ID:        strings.TrimSpace(sheets.Cell(row, colID)),
		CreatedAt: ParseTimestamp(sheets.Cell(row, colCreatedAt)),
		Text:      strings.TrimSpace(sheets.Cell(row, colText)),
		Owner:     sheets.Cell(row, colOwner),
		Status:    ParseStatus(raw),
		RawStatus: raw,
		Notes:     sheets.Cell(row, colNotes),
		Row:       rowNum,
	}
}

func (r Record) cells() []string {
	return []string{
		r.CreatedAt.Format(time.RFC3339),
		r.Text,
		r.Owner,
		string(r.Status),
		r.Notes,
		r.ID,
	}
}

func padded(row []string) []string {
	cells := make([]string, rowWidth)
	copy(cells, row)
	return cells
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006, 15:04:05",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006",
}

// ParseTimestamp reads the created_at column. Older rows hold dates only
// or locale-formatted strings. Unparseable values give the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0)
	}
	return time.Time{}
}
