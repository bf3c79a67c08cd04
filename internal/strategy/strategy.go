// Package strategy reads the company profile and the weekly strategy plan.
package strategy

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/sheets"
)

// Column layout of the strategy plan sheet
const (
	colWeek = iota
	colFocus
	colGoal
	colTasks
	colDoneSummary
	weekWidth
)

// ProfileEntry is one attribute of the company profile
type ProfileEntry struct {
	Key   string
	Value string
}

// Profile keeps sheet order, which is presentation order
type Profile []ProfileEntry

// Week is one row of the strategy plan
type Week struct {
	Label       string
	Focus       string
	Goal        string
	Tasks       string
	DoneSummary string
	Row         int
}

func (w Week) cells() []string {
	return []string{w.Label, w.Focus, w.Goal, w.Tasks, w.DoneSummary}
}

// Repository reads both sheets. Rows start after a header row.
type Repository struct {
	store        sheets.Store
	profileSheet string
	planSheet    string
}

// NewRepository creates a repository over the named sheets
func NewRepository(store sheets.Store, profileSheet, planSheet string) *Repository {
	return &Repository{store: store, profileSheet: profileSheet, planSheet: planSheet}
}

// Profile returns every non-empty key of the profile sheet
func (r *Repository) Profile(ctx context.Context) (Profile, error) {
	rows, err := r.store.ReadRange(ctx, r.profileSheet, "A2:B")
	if err != nil {
		return nil, err
	}

	profile := Profile{}
	for _, row := range rows {
		key := strings.TrimSpace(sheets.Cell(row, 0))
		if key == "" {
			continue
		}
		profile = append(profile, ProfileEntry{Key: key, Value: strings.TrimSpace(sheets.Cell(row, 1))})
	}
	return profile, nil
}

// Weeks returns every labelled row of the strategy plan in sheet order
func (r *Repository) Weeks(ctx context.Context) ([]Week, error) {
	rows, err := r.store.ReadRange(ctx, r.planSheet, "A2:E")
	if err != nil {
		return nil, err
	}

	weeks := []Week{}
	for i, row := range rows {
		week := Week{
			Label:       sheets.Cell(row, colWeek),
			Focus:       sheets.Cell(row, colFocus),
			Goal:        sheets.Cell(row, colGoal),
			Tasks:       sheets.Cell(row, colTasks),
			DoneSummary: sheets.Cell(row, colDoneSummary),
			Row:         i + 2,
		}
		if strings.TrimSpace(week.Label) == "" {
			continue
		}
		weeks = append(weeks, week)
	}
	return weeks, nil
}

// CurrentWeek returns the plan row for the ISO week containing now
func (r *Repository) CurrentWeek(ctx context.Context, now time.Time) (Week, error) {
	weeks, err := r.Weeks(ctx)
	if err != nil {
		return Week{}, err
	}

	_, isoWeek := now.ISOWeek()
	for _, week := range weeks {
		if MatchesWeek(week.Label, isoWeek) {
			return week, nil
		}
	}
	return Week{}, apperr.NotFound(fmt.Sprintf("strategy week %s", WeekLabel(now)))
}

// UpdateGoal overwrites the goal of the current week in place. The row is
// re-read right before the write so an append that shifted rows cannot
// redirect the update to another week.
func (r *Repository) UpdateGoal(ctx context.Context, now time.Time, goal string) (Week, error) {
	week, err := r.CurrentWeek(ctx, now)
	if err != nil {
		return Week{}, err
	}

	rows, err := r.store.ReadRange(ctx, r.planSheet, sheets.RowA1(week.Row, weekWidth))
	if err != nil {
		return Week{}, err
	}
	_, isoWeek := now.ISOWeek()
	if len(rows) == 0 || !MatchesWeek(sheets.Cell(rows[0], colWeek), isoWeek) {
		return Week{}, apperr.NotFound(fmt.Sprintf("strategy week %s moved from row %d", WeekLabel(now), week.Row))
	}

	current := rows[0]
	updated := Week{
		Label:       sheets.Cell(current, colWeek),
		Focus:       sheets.Cell(current, colFocus),
		Goal:        goal,
		Tasks:       sheets.Cell(current, colTasks),
		DoneSummary: sheets.Cell(current, colDoneSummary),
		Row:         week.Row,
	}

	if err := r.store.UpdateRow(ctx, r.planSheet, week.Row, updated.cells()); err != nil {
		return Week{}, err
	}

	log.Printf("Updated goal of %s (row %d)", updated.Label, updated.Row)
	return updated, nil
}

// WeekLabel formats the ISO week of t the way the plan sheet labels it
func WeekLabel(t time.Time) string {
	_, week := t.ISOWeek()
	return fmt.Sprintf("W%d", week)
}

// MatchesWeek reports whether a sheet label names the given ISO week.
// Case, inner spaces and leading zeros are ignored: "W12", "w12", "W 12".
func MatchesWeek(label string, week int) bool {
	label = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, label)

	if !strings.HasPrefix(label, "W") {
		return false
	}
	n, err := strconv.Atoi(label[1:])
	return err == nil && n == week
}
