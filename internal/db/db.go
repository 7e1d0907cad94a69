package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// DefaultPath returns the database location used when the config does not
// set one. Prefer working directory so the DB is stable across go run /
// go build. Fall back to executable directory for deployed builds.
func DefaultPath() string {
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "hauler.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "hauler.db")
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Try to read current version
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS market_history (
				station_id INTEGER NOT NULL,
				type_id    INTEGER NOT NULL,
				date       TEXT NOT NULL,
				average    REAL NOT NULL,
				highest    REAL NOT NULL,
				lowest     REAL NOT NULL,
				volume     INTEGER NOT NULL,
				PRIMARY KEY (station_id, type_id, date)
			);
			CREATE INDEX IF NOT EXISTS idx_history_type_station ON market_history(type_id, station_id, date);

			CREATE TABLE IF NOT EXISTS item_types (
				type_id      INTEGER PRIMARY KEY,
				type_name    TEXT NOT NULL,
				volume_m3    REAL NOT NULL
			);

			CREATE TABLE IF NOT EXISTS strategies (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				params_json TEXT NOT NULL,
				is_active   INTEGER NOT NULL DEFAULT 1,
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS walkforward_batches (
				id          TEXT PRIMARY KEY,
				strategy_id INTEGER NOT NULL,
				created_at  TEXT NOT NULL,
				report_json TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_batches_strategy ON walkforward_batches(strategy_id);

			CREATE TABLE IF NOT EXISTS sweep_reports (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at  TEXT NOT NULL,
				report_json TEXT NOT NULL
			);

			INSERT OR REPLACE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}
	return nil
}
