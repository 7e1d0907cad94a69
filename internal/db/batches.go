package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"eve-hauler/internal/engine"
)

// SaveBatch stores a finished walk-forward batch as a JSON document keyed by
// its batch ID. Batches are immutable once written.
func (d *DB) SaveBatch(b *engine.WalkForwardBatch) error {
	report, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	_, err = d.sql.Exec(
		"INSERT INTO walkforward_batches (id, strategy_id, created_at, report_json) VALUES (?,?,?,?)",
		b.ID, b.StrategyID, time.Now().UTC().Format(time.RFC3339), string(report),
	)
	if err != nil {
		return fmt.Errorf("save batch %s: %w", b.ID, err)
	}
	return nil
}

// GetBatch loads one batch by ID, or nil when absent.
func (d *DB) GetBatch(id string) (*engine.WalkForwardBatch, error) {
	var report string
	err := d.sql.QueryRow("SELECT report_json FROM walkforward_batches WHERE id=?", id).Scan(&report)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch %s: %w", id, err)
	}
	var b engine.WalkForwardBatch
	if err := json.Unmarshal([]byte(report), &b); err != nil {
		return nil, fmt.Errorf("unmarshal batch %s: %w", id, err)
	}
	return &b, nil
}

// BatchSummary is one row of the batch listing.
type BatchSummary struct {
	ID         string
	StrategyID int64
	CreatedAt  string
}

// ListBatches returns recent batches, newest first. strategyID 0 lists all.
func (d *DB) ListBatches(strategyID int64, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT id, strategy_id, created_at FROM walkforward_batches"
	args := []any{}
	if strategyID > 0 {
		query += " WHERE strategy_id=?"
		args = append(args, strategyID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []BatchSummary
	for rows.Next() {
		var s BatchSummary
		if err := rows.Scan(&s.ID, &s.StrategyID, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveSweepReport stores a sweep report and returns its row ID.
func (d *DB) SaveSweepReport(r *engine.LabSweepReport) (int64, error) {
	report, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("marshal sweep report: %w", err)
	}
	res, err := d.sql.Exec(
		"INSERT INTO sweep_reports (created_at, report_json) VALUES (?,?)",
		time.Now().UTC().Format(time.RFC3339), string(report),
	)
	if err != nil {
		return 0, fmt.Errorf("save sweep report: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// GetSweepReport loads one sweep report by row ID, or nil when absent.
func (d *DB) GetSweepReport(id int64) (*engine.LabSweepReport, error) {
	var report string
	err := d.sql.QueryRow("SELECT report_json FROM sweep_reports WHERE id=?", id).Scan(&report)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sweep report %d: %w", id, err)
	}
	var r engine.LabSweepReport
	if err := json.Unmarshal([]byte(report), &r); err != nil {
		return nil, fmt.Errorf("unmarshal sweep report %d: %w", id, err)
	}
	return &r, nil
}
