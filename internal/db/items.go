package db

import (
	"fmt"

	"eve-hauler/internal/engine"
)

// UpsertItemTypes stores or refreshes the tradeable item catalog.
func (d *DB) UpsertItemTypes(items []engine.SourceItem) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO item_types (type_id, type_name, volume_m3) VALUES (?,?,?)
		ON CONFLICT(type_id) DO UPDATE SET type_name=excluded.type_name, volume_m3=excluded.volume_m3
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.Exec(it.TypeID, it.TypeName, it.UnitVolumeM3); err != nil {
			return fmt.Errorf("upsert type %d: %w", it.TypeID, err)
		}
	}
	return tx.Commit()
}

// ListItemTypes returns the item catalog ordered by type ID.
func (d *DB) ListItemTypes() ([]engine.SourceItem, error) {
	rows, err := d.sql.Query("SELECT type_id, type_name, volume_m3 FROM item_types ORDER BY type_id")
	if err != nil {
		return nil, fmt.Errorf("list item types: %w", err)
	}
	defer rows.Close()

	var out []engine.SourceItem
	for rows.Next() {
		var it engine.SourceItem
		if err := rows.Scan(&it.TypeID, &it.TypeName, &it.UnitVolumeM3); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
