package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// GetMigrations returns all migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "sheet_rows",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS sheet_rows (
						sheet   TEXT    NOT NULL,
						row_num INTEGER NOT NULL,
						cells   TEXT    NOT NULL,
						PRIMARY KEY (sheet, row_num)
					)
				`)
				return err
			},
		},
		{
			Version: 2,
			Name:    "usage_log",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS usage (
						id          INTEGER PRIMARY KEY AUTOINCREMENT,
						ts          INTEGER NOT NULL,
						service     TEXT    NOT NULL,
						action      TEXT    NOT NULL,
						tokens      INTEGER NOT NULL DEFAULT 0,
						duration_ms INTEGER NOT NULL DEFAULT 0,
						error       TEXT    NOT NULL DEFAULT ''
					);
					CREATE INDEX IF NOT EXISTS idx_usage_service ON usage(service, ts);
				`)
				return err
			},
		},
	}
}

// RunMigrations applies every migration that has not been recorded yet
func RunMigrations(db *DB) error {
	applied, err := GetAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Applying migration %d: %s", migration.Version, migration.Name)

		err := db.WithTx(func(tx *sql.Tx) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			query := `INSERT INTO migration_versions (version, name, applied_at) VALUES (?, ?, ?)`
			_, err := tx.Exec(query, migration.Version, migration.Name, time.Now().Unix())
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetAppliedMigrations returns the set of applied migration versions
func GetAppliedMigrations(db *DB) (map[int]bool, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migration_versions (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT version FROM migration_versions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}
