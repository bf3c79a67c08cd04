// Package journal appends conversation turns to the log sheet.
package journal

import (
	"context"
	"log"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/sheets"
)

// AI is the "from" value recorded for model replies
const AI = "AI"

// Journal writes timestamp | from | message rows
type Journal struct {
	store    sheets.Store
	sheet    string
	location *time.Location
	now      func() time.Time
}

// New creates a journal over the named sheet
func New(store sheets.Store, sheet string, location *time.Location) *Journal {
	if location == nil {
		location = time.Local
	}
	return &Journal{store: store, sheet: sheet, location: location, now: time.Now}
}

// Record appends one turn. A failed write is logged and otherwise ignored;
// the conversation must not depend on the journal.
func (j *Journal) Record(ctx context.Context, from, message string) {
	if j == nil || message == "" {
		return
	}

	row := []string{j.now().In(j.location).Format(time.RFC3339), from, message}
	if err := j.store.AppendRow(ctx, j.sheet, row); err != nil {
		log.Printf("Failed to journal message from %s: %v", from, err)
	}
}
