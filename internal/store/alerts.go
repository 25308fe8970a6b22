package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fluxmon/fluxmon/internal/types"
)

// InsertAlerts persists a batch of alerts in a single transaction.
func (s *Store) InsertAlerts(ctx context.Context, alerts []types.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	return s.transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO alerts (id, sensor_id, type, message, value, threshold, timestamp, resolved)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range alerts {
			if _, err := stmt.ExecContext(ctx,
				a.ID, a.SensorID, a.Type, a.Message, a.Value, a.Threshold, a.Timestamp, a.Resolved); err != nil {
				return fmt.Errorf("insert alert %d: %w", a.ID, err)
			}
		}
		return nil
	})
}

// DeleteAlertsBefore removes all alerts older than cutoff in one atomic
// range delete. It returns the number of rows deleted.
func (s *Store) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete alerts: %w", err)
	}
	return res.RowsAffected()
}

// CountAlerts returns the total number of persisted alerts.
func (s *Store) CountAlerts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM alerts`).Scan(&n)
	return n, err
}
