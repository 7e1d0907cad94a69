package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"eve-hauler/internal/engine"
)

// SaveStrategy inserts the strategy, or updates it in place when a strategy
// with the same name already exists. The ID is filled in on insert.
func (d *DB) SaveStrategy(s *engine.Strategy) error {
	params, err := json.Marshal(s.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := d.sql.Exec(`
		INSERT INTO strategies (name, description, params_json, is_active, created_at, updated_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			params_json = excluded.params_json,
			is_active   = excluded.is_active,
			updated_at  = excluded.updated_at
	`, s.Name, s.Description, string(params), boolToInt(s.IsActive), now, now)
	if err != nil {
		return fmt.Errorf("save strategy %q: %w", s.Name, err)
	}

	if id, err := res.LastInsertId(); err == nil && id > 0 {
		s.ID = id
	}
	if s.ID == 0 {
		// Upsert path: LastInsertId is not reliable, look the row up.
		row := d.sql.QueryRow("SELECT id FROM strategies WHERE name=?", s.Name)
		if err := row.Scan(&s.ID); err != nil {
			return fmt.Errorf("resolve strategy id: %w", err)
		}
	}
	return nil
}

// GetStrategy returns the strategy with the given name, or nil when absent.
func (d *DB) GetStrategy(name string) (*engine.Strategy, error) {
	row := d.sql.QueryRow(
		"SELECT id, name, description, params_json, is_active FROM strategies WHERE name=?",
		name,
	)
	s, err := scanStrategy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get strategy %q: %w", name, err)
	}
	return s, nil
}

// ListStrategies returns all strategies ordered by name, optionally only the
// active ones.
func (d *DB) ListStrategies(activeOnly bool) ([]engine.Strategy, error) {
	query := "SELECT id, name, description, params_json, is_active FROM strategies"
	if activeOnly {
		query += " WHERE is_active=1"
	}
	query += " ORDER BY name"

	rows, err := d.sql.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	defer rows.Close()

	var out []engine.Strategy
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// SetStrategyActive toggles a strategy without touching its parameters.
func (d *DB) SetStrategyActive(name string, active bool) error {
	res, err := d.sql.Exec(
		"UPDATE strategies SET is_active=?, updated_at=? WHERE name=?",
		boolToInt(active), time.Now().UTC().Format(time.RFC3339), name,
	)
	if err != nil {
		return fmt.Errorf("update strategy %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("strategy %q not found", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStrategy(row rowScanner) (*engine.Strategy, error) {
	var s engine.Strategy
	var params string
	var active int
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &params, &active); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &s.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	s.IsActive = active != 0
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
