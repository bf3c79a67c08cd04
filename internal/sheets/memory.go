package sheets

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
)

// MemoryStore keeps sheets in process memory. It backs the "memory" store
// backend and the tests of every package that persists rows.
type MemoryStore struct {
	mu     sync.RWMutex
	sheets map[string][][]string

	// Injected failures, keyed by sheet name
	FailReads  map[string]error
	FailWrites map[string]error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sheets:     make(map[string][][]string),
		FailReads:  make(map[string]error),
		FailWrites: make(map[string]error),
	}
}

// Seed replaces a sheet's contents, header row included.
func (m *MemoryStore) Seed(sheet string, rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = copyRows(rows)
}

// Rows returns a copy of every row of a sheet.
func (m *MemoryStore) Rows(sheet string) [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRows(m.sheets[sheet])
}

func (m *MemoryStore) AppendRow(ctx context.Context, sheet string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailWrites[sheet]; err != nil {
		return apperr.StoreWrite("append "+sheet, err)
	}
	m.sheets[sheet] = append(m.sheets[sheet], append([]string(nil), values...))
	return nil
}

func (m *MemoryStore) ReadRange(ctx context.Context, sheet, a1 string) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.FailReads[sheet]; err != nil {
		return nil, apperr.Upstream("read "+sheet, err)
	}

	rng, err := ParseRange(a1)
	if err != nil {
		return nil, apperr.Upstream("read "+sheet, err)
	}

	return SliceRange(m.sheets[sheet], rng), nil
}

func (m *MemoryStore) UpdateRow(ctx context.Context, sheet string, row int, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailWrites[sheet]; err != nil {
		return apperr.StoreWrite("update "+sheet, err)
	}
	if row < 1 {
		return apperr.StoreWrite("update "+sheet, fmt.Errorf("invalid row %d", row))
	}

	rows := m.sheets[sheet]
	for len(rows) < row {
		rows = append(rows, nil)
	}
	rows[row-1] = append([]string(nil), values...)
	m.sheets[sheet] = rows
	return nil
}

// SliceRange cuts a range out of full sheet rows (all[0] is row 1) the way
// the Sheets API does: trailing empty rows and cells are dropped.
func SliceRange(all [][]string, rng Range) [][]string {
	out := [][]string{}
	for r := rng.StartRow; r <= len(all); r++ {
		if rng.EndRow != 0 && r > rng.EndRow {
			break
		}
		src := all[r-1]
		var cells []string
		for c := rng.StartCol; c <= rng.EndCol && c < len(src); c++ {
			cells = append(cells, src[c])
		}
		out = append(out, trimTrailing(cells))
	}

	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}

func trimTrailing(cells []string) []string {
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	if cells == nil {
		return []string{}
	}
	return cells
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
