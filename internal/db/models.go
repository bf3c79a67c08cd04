package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
	"github.com/alexrabarts/ceo-agent/internal/sheets"
)

// SheetStore implements sheets.Store on SQLite so the bot can run without a
// spreadsheet. Each row is stored as a JSON array of cells.
type SheetStore struct {
	db *DB
}

// NewSheetStore returns a store over an initialized database
func NewSheetStore(database *DB) *SheetStore {
	return &SheetStore{db: database}
}

var _ sheets.Store = (*SheetStore)(nil)

func (s *SheetStore) AppendRow(ctx context.Context, sheet string, values []string) error {
	cells, err := json.Marshal(values)
	if err != nil {
		return apperr.StoreWrite("append "+sheet, err)
	}

	err = s.db.WithTx(func(tx *sql.Tx) error {
		var last sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT MAX(row_num) FROM sheet_rows WHERE sheet = ?`, sheet).Scan(&last); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (sheet, row_num, cells) VALUES (?, ?, ?)`,
			sheet, last.Int64+1, string(cells))
		return err
	})
	if err != nil {
		return apperr.StoreWrite("append "+sheet, err)
	}
	return nil
}

func (s *SheetStore) ReadRange(ctx context.Context, sheet, a1 string) ([][]string, error) {
	rng, err := sheets.ParseRange(a1)
	if err != nil {
		return nil, apperr.Upstream("read "+sheet, err)
	}

	query := `SELECT row_num, cells FROM sheet_rows WHERE sheet = ? AND row_num >= ?`
	args := []interface{}{sheet, rng.StartRow}
	if rng.EndRow != 0 {
		query += ` AND row_num <= ?`
		args = append(args, rng.EndRow)
	}
	query += ` ORDER BY row_num`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Upstream("read "+sheet, err)
	}
	defer rows.Close()

	// Rebuild full sheet rows so gaps read back as empty rows
	var all [][]string
	for rows.Next() {
		var rowNum int
		var cells string
		if err := rows.Scan(&rowNum, &cells); err != nil {
			return nil, apperr.Upstream("read "+sheet, err)
		}
		var values []string
		if err := json.Unmarshal([]byte(cells), &values); err != nil {
			return nil, apperr.Upstream("read "+sheet, fmt.Errorf("row %d: %w", rowNum, err))
		}
		for len(all) < rowNum-1 {
			all = append(all, nil)
		}
		all = append(all, values)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("read "+sheet, err)
	}

	return sheets.SliceRange(all, rng), nil
}

func (s *SheetStore) UpdateRow(ctx context.Context, sheet string, row int, values []string) error {
	if row < 1 {
		return apperr.StoreWrite("update "+sheet, fmt.Errorf("invalid row %d", row))
	}

	cells, err := json.Marshal(values)
	if err != nil {
		return apperr.StoreWrite("update "+sheet, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sheet_rows (sheet, row_num, cells) VALUES (?, ?, ?)
		ON CONFLICT(sheet, row_num) DO UPDATE SET cells = excluded.cells
	`, sheet, row, string(cells))
	if err != nil {
		return apperr.StoreWrite("update "+sheet, err)
	}
	return nil
}

// UsageStat aggregates usage rows per service
type UsageStat struct {
	Service  string
	Calls    int
	Failures int
	Tokens   int
	AvgMs    int64
}

// LogUsage records an external API call
func (db *DB) LogUsage(service, action string, tokens int, duration time.Duration, err error) error {
	var errStr string
	if err != nil {
		errStr = err.Error()
	}

	query := `INSERT INTO usage (ts, service, action, tokens, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)`
	_, dbErr := db.Exec(query, time.Now().Unix(), service, action, tokens, duration.Milliseconds(), errStr)
	return dbErr
}

// UsageStats summarizes usage since the given time
func (db *DB) UsageStats(since time.Time) ([]UsageStat, error) {
	rows, err := db.Query(`
		SELECT service,
		       COUNT(*),
		       SUM(CASE WHEN error != '' THEN 1 ELSE 0 END),
		       COALESCE(SUM(tokens), 0),
		       COALESCE(CAST(AVG(duration_ms) AS INTEGER), 0)
		FROM usage
		WHERE ts >= ?
		GROUP BY service
		ORDER BY service
	`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var stats []UsageStat
	for rows.Next() {
		var st UsageStat
		if err := rows.Scan(&st.Service, &st.Calls, &st.Failures, &st.Tokens, &st.AvgMs); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
