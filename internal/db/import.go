package db

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"eve-hauler/internal/engine"
)

// csvColumns is the expected column order of a history CSV, with or without
// a header row: station_id, type_id, date, average, highest, lowest, volume.
const csvColumns = 7

// ImportHistoryCSV loads daily aggregates from a CSV file into the history
// table, replacing rows that share a (station, item, date) key. Returns the
// number of rows imported.
func (d *DB) ImportHistoryCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return d.importHistory(csv.NewReader(f))
}

func (d *DB) importHistory(r *csv.Reader) (int, error) {
	r.FieldsPerRecord = csvColumns

	tx, err := d.sql.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO market_history (station_id, type_id, date, average, highest, lowest, volume) VALUES (?,?,?,?,?,?,?)",
	)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv: %w", err)
		}
		line++
		if line == 1 && record[0] == "station_id" {
			continue // header row
		}

		row, err := parseHistoryRecord(record)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := stmt.Exec(row.stationID, row.typeID, row.date, row.avg, row.high, row.low, row.volume); err != nil {
			return 0, fmt.Errorf("line %d: insert: %w", line, err)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

// ImportItemTypesCSV loads the item catalog from a CSV file with columns
// type_id, type_name, volume_m3. Returns the number of items imported.
func (d *DB) ImportItemTypesCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3

	var items []engine.SourceItem
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv: %w", err)
		}
		line++
		if line == 1 && record[0] == "type_id" {
			continue
		}

		typeID, err := strconv.ParseInt(record[0], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("line %d: type_id %q: %w", line, record[0], err)
		}
		volume, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: volume_m3 %q: %w", line, record[2], err)
		}
		items = append(items, engine.SourceItem{
			TypeID:       int32(typeID),
			TypeName:     record[1],
			UnitVolumeM3: volume,
		})
	}
	if err := d.UpsertItemTypes(items); err != nil {
		return 0, err
	}
	return len(items), nil
}

type historyRecord struct {
	stationID int64
	typeID    int64
	date      string
	avg       float64
	high      float64
	low       float64
	volume    int64
}

func parseHistoryRecord(record []string) (historyRecord, error) {
	var row historyRecord
	var err error

	if row.stationID, err = strconv.ParseInt(record[0], 10, 64); err != nil {
		return row, fmt.Errorf("station_id %q: %w", record[0], err)
	}
	if row.typeID, err = strconv.ParseInt(record[1], 10, 32); err != nil {
		return row, fmt.Errorf("type_id %q: %w", record[1], err)
	}
	if _, err = time.Parse("2006-01-02", record[2]); err != nil {
		return row, fmt.Errorf("date %q: %w", record[2], err)
	}
	row.date = record[2]
	if row.avg, err = strconv.ParseFloat(record[3], 64); err != nil {
		return row, fmt.Errorf("average %q: %w", record[3], err)
	}
	if row.high, err = strconv.ParseFloat(record[4], 64); err != nil {
		return row, fmt.Errorf("highest %q: %w", record[4], err)
	}
	if row.low, err = strconv.ParseFloat(record[5], 64); err != nil {
		return row, fmt.Errorf("lowest %q: %w", record[5], err)
	}
	if row.volume, err = strconv.ParseInt(record[6], 10, 64); err != nil {
		return row, fmt.Errorf("volume %q: %w", record[6], err)
	}
	return row, nil
}
