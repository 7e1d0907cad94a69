package db

import (
	"fmt"

	"eve-hauler/internal/engine"
)

// History returns the stored daily aggregates for one item at one station,
// oldest first. A positive maxDays keeps only the trailing maxDays points.
// Satisfies engine.HistorySource.
func (d *DB) History(typeID int32, stationID int64, maxDays int) []engine.HistoryPoint {
	rows, err := d.sql.Query(
		"SELECT date, average, highest, lowest, volume FROM market_history WHERE station_id=? AND type_id=? ORDER BY date",
		stationID, typeID,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var points []engine.HistoryPoint
	for rows.Next() {
		var p engine.HistoryPoint
		if err := rows.Scan(&p.Date, &p.AvgPrice, &p.HighPrice, &p.LowPrice, &p.Volume); err != nil {
			continue
		}
		points = append(points, p)
	}
	if maxDays > 0 && len(points) > maxDays {
		points = points[len(points)-maxDays:]
	}
	return points
}

// ReplaceHistory swaps the stored series for one (station, item) pair.
func (d *DB) ReplaceHistory(stationID int64, typeID int32, points []engine.HistoryPoint) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM market_history WHERE station_id=? AND type_id=?", stationID, typeID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO market_history (station_id, type_id, date, average, highest, lowest, volume) VALUES (?,?,?,?,?,?,?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(stationID, typeID, p.Date, p.AvgPrice, p.HighPrice, p.LowPrice, p.Volume); err != nil {
			return fmt.Errorf("insert %s: %w", p.Date, err)
		}
	}
	return tx.Commit()
}

// CoverageRow summarizes the stored history for one (station, item) pair.
type CoverageRow struct {
	StationID int64
	TypeID    int32
	Days      int
	FirstDate string
	LastDate  string
}

// HistoryCoverage lists every stored series with its day count and date span.
func (d *DB) HistoryCoverage() ([]CoverageRow, error) {
	rows, err := d.sql.Query(`
		SELECT station_id, type_id, COUNT(*), MIN(date), MAX(date)
		FROM market_history
		GROUP BY station_id, type_id
		ORDER BY station_id, type_id
	`)
	if err != nil {
		return nil, fmt.Errorf("coverage query: %w", err)
	}
	defer rows.Close()

	var out []CoverageRow
	for rows.Next() {
		var r CoverageRow
		if err := rows.Scan(&r.StationID, &r.TypeID, &r.Days, &r.FirstDate, &r.LastDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteHistoryBefore removes rows older than the given date (exclusive) to
// bound database growth. Returns the number of rows removed.
func (d *DB) DeleteHistoryBefore(date string) (int64, error) {
	res, err := d.sql.Exec("DELETE FROM market_history WHERE date < ?", date)
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
