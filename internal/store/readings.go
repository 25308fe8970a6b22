package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fluxmon/fluxmon/internal/types"
)

// InsertReadings persists a batch of readings in a single transaction.
func (s *Store) InsertReadings(ctx context.Context, readings []types.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	return s.transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO readings (id, sensor_id, value, timestamp, unit, location)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range readings {
			if _, err := stmt.ExecContext(ctx,
				r.ID, r.SensorID, r.Value, r.Timestamp, r.Unit, r.Location); err != nil {
				return fmt.Errorf("insert reading %d: %w", r.ID, err)
			}
		}
		return nil
	})
}

// DeleteReadingsBefore removes all readings older than cutoff in one
// atomic range delete. It returns the number of rows deleted.
func (s *Store) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete readings: %w", err)
	}
	return res.RowsAffected()
}

// ReadingsBefore returns all readings older than cutoff, oldest first.
// The retention sweeper uses this to archive rows before deletion.
func (s *Store) ReadingsBefore(ctx context.Context, cutoff time.Time) ([]types.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sensor_id, value, timestamp, unit, location
		 FROM readings WHERE timestamp < ? ORDER BY timestamp`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var result []types.Reading
	for rows.Next() {
		var r types.Reading
		if err := rows.Scan(&r.ID, &r.SensorID, &r.Value, &r.Timestamp, &r.Unit, &r.Location); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// CountReadings returns the total number of persisted readings.
func (s *Store) CountReadings(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM readings`).Scan(&n)
	return n, err
}
