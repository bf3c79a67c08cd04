// Package sheets is the tabular store the bot persists to: a spreadsheet
// addressed by sheet name and A1 range.
package sheets

import "context"

// Store is append-only plus point-update row storage.
//
// Rows are 1-based sheet rows, the same numbers a spreadsheet shows. Reads
// fail with apperr.ErrUpstreamUnavailable, writes with apperr.ErrStoreWrite.
type Store interface {
	AppendRow(ctx context.Context, sheet string, values []string) error
	ReadRange(ctx context.Context, sheet, a1 string) ([][]string, error)
	UpdateRow(ctx context.Context, sheet string, row int, values []string) error
}

// Cell returns row[i], or "" when the row is shorter. Spreadsheet APIs drop
// trailing empty cells so every reader goes through this.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
