// Package db records observation snapshots to sqlite so robot sessions can
// be inspected after the fact.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/durin-robotics/durin/internal/sensor"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the observation store at path.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS observations (
			charge            DOUBLE,
			voltage           DOUBLE,
			update_frequency  DOUBLE,
			mean_depth_mm     DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create observations table: %w", err)
	}

	return &DB{db}, nil
}

// RecordObservation stores one snapshot. The depth volume is reduced to its
// mean; full volumes are too big to be worth keeping per row.
func (db *DB) RecordObservation(obs sensor.Observation) error {
	var sum float64
	for _, layer := range obs.DepthVolume {
		for _, row := range layer {
			for _, v := range row {
				sum += float64(v)
			}
		}
	}
	meanDepth := sum / (8 * 8 * 8)

	_, err := db.Exec(
		`INSERT INTO observations (charge, voltage, update_frequency, mean_depth_mm) VALUES (?, ?, ?, ?)`,
		obs.Charge, obs.Voltage, obs.UpdateFrequency, meanDepth,
	)
	if err != nil {
		return fmt.Errorf("failed to record observation: %w", err)
	}
	return nil
}

// ObservationRow is one recorded snapshot.
type ObservationRow struct {
	Charge          float64
	Voltage         float64
	UpdateFrequency float64
	MeanDepthMM     float64
	Timestamp       string
}

// RecentObservations returns up to limit snapshots, newest first.
func (db *DB) RecentObservations(limit int) ([]ObservationRow, error) {
	rows, err := db.Query(
		`SELECT charge, voltage, update_frequency, mean_depth_mm, timestamp
		 FROM observations ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ObservationRow
	for rows.Next() {
		var r ObservationRow
		if err := rows.Scan(&r.Charge, &r.Voltage, &r.UpdateFrequency, &r.MeanDepthMM, &r.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
