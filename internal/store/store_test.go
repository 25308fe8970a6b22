package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxmon/fluxmon/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := DefaultConfig() // in-memory
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ReadingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	readings := []types.Reading{
		{ID: 1, SensorID: "TEMP_001", Value: 20.5, Timestamp: now.Add(-2 * time.Hour), Unit: "°C", Location: "Room A"},
		{ID: 2, SensorID: "TEMP_002", Value: 21.0, Timestamp: now.Add(-time.Hour), Unit: "°C", Location: "Room B"},
		{ID: 3, SensorID: "HUMIDITY_001", Value: 55.0, Timestamp: now, Unit: "%", Location: "Basement"},
	}

	require.NoError(t, s.InsertReadings(ctx, readings))

	n, err := s.CountReadings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Range read returns rows older than the cutoff, oldest first.
	old, err := s.ReadingsBefore(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, old, 2)
	assert.Equal(t, int64(1), old[0].ID)
	assert.Equal(t, int64(2), old[1].ID)
	assert.Equal(t, "TEMP_001", old[0].SensorID)
	assert.Equal(t, 20.5, old[0].Value)

	// Atomic range delete.
	deleted, err := s.DeleteReadingsBefore(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	n, err = s.CountReadings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_AlertsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	alerts := []types.Alert{
		{ID: 1, SensorID: "TEMP_001", Type: types.AlertTypeAnomaly, Message: "Anomaly detected: 99 °C",
			Value: 99, Threshold: 27.5, Timestamp: now.Add(-48 * time.Hour)},
		{ID: 2, SensorID: "TEMP_001", Type: types.AlertTypeAnomaly, Message: "Anomaly detected: 98 °C",
			Value: 98, Threshold: 27.5, Timestamp: now},
	}

	require.NoError(t, s.InsertAlerts(ctx, alerts))

	n, err := s.CountAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	deleted, err := s.DeleteAlertsBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	n, err = s.CountAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_EmptyBatchesAreNoOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertReadings(ctx, nil))
	require.NoError(t, s.InsertAlerts(ctx, nil))
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	s, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
