// Package retention ages out durable-store rows past the retention
// horizon. In-memory buffers are untouched; their eviction is
// capacity-driven and handled by the buffers themselves.
package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fluxmon/fluxmon/internal/logging"
	"github.com/fluxmon/fluxmon/internal/metrics"
	"github.com/fluxmon/fluxmon/internal/types"
)

// Defaults for the sweep cadence and retention horizon.
const (
	DefaultInterval = time.Hour
	DefaultHorizon  = 24 * time.Hour
)

// Store is the durable-store contract required by the sweeper.
type Store interface {
	ReadingsBefore(ctx context.Context, cutoff time.Time) ([]types.Reading, error)
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Archiver receives expired reading rows before they are deleted.
type Archiver interface {
	ArchiveReadings(readings []types.Reading, cutoff time.Time) error
}

// Sweeper deletes durable rows older than now - horizon on a fixed
// interval. It runs safely concurrently with the flusher: one only
// appends, the other only deletes by timestamp.
type Sweeper struct {
	store    Store
	archiver Archiver // optional
	interval time.Duration
	horizon  time.Duration

	mu      sync.Mutex // serializes Start/Stop
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	log *slog.Logger
}

// New creates a Sweeper. Non-positive interval or horizon fall back to
// the defaults. archiver may be nil.
func New(store Store, archiver Archiver, interval, horizon time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Sweeper{
		store:    store,
		archiver: archiver,
		interval: interval,
		horizon:  horizon,
		log:      logging.Component("retention"),
	}
}

// Start launches the sweep worker. Idempotent.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.run(ctx)

	s.log.Info("sweeper started", "interval", s.interval, "horizon", s.horizon)
}

// Stop halts the worker and waits for completion. Idempotent.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false

	s.log.Info("sweeper stopped")
}

// run executes sweep cycles on the configured interval.
func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs one sweep cycle. A failure is logged and retried on the
// next scheduled cycle; it is never fatal.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.horizon)

	if s.archiver != nil {
		expired, err := s.store.ReadingsBefore(ctx, cutoff)
		if err != nil {
			metrics.SweepErrors.Inc()
			s.log.Error("read expired readings", "error", err)
			return
		}
		if len(expired) > 0 {
			if err := s.archiver.ArchiveReadings(expired, cutoff); err != nil {
				// Do not delete rows we failed to archive.
				metrics.SweepErrors.Inc()
				s.log.Error("archive readings", "error", err, "count", len(expired))
				return
			}
		}
	}

	deletedReadings, err := s.store.DeleteReadingsBefore(ctx, cutoff)
	if err != nil {
		metrics.SweepErrors.Inc()
		s.log.Error("delete readings", "error", err)
		return
	}
	metrics.SweptRows.WithLabelValues("readings").Add(float64(deletedReadings))

	deletedAlerts, err := s.store.DeleteAlertsBefore(ctx, cutoff)
	if err != nil {
		metrics.SweepErrors.Inc()
		s.log.Error("delete alerts", "error", err)
		return
	}
	metrics.SweptRows.WithLabelValues("alerts").Add(float64(deletedAlerts))

	s.log.Info("sweep completed",
		"cutoff", cutoff,
		"readings_deleted", deletedReadings,
		"alerts_deleted", deletedAlerts)
}
