// Package persist drains newly-buffered items into the durable store on
// a fixed cadence.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fluxmon/fluxmon/internal/buffer"
	"github.com/fluxmon/fluxmon/internal/logging"
	"github.com/fluxmon/fluxmon/internal/metrics"
	"github.com/fluxmon/fluxmon/internal/types"
)

// DefaultInterval is the default flush cadence.
const DefaultInterval = 5 * time.Second

// Store is the durable-store contract required by the flusher.
type Store interface {
	InsertReadings(ctx context.Context, readings []types.Reading) error
	InsertAlerts(ctx context.Context, alerts []types.Alert) error
}

// Flusher periodically writes items added to the buffers since the last
// successful flush. It tracks a monotonically advancing high-water mark
// per entity type, so each buffered item is persisted exactly once
// regardless of cadence vs. production rate. Items evicted before they
// are flushed are lost from the durable path; capacity is chosen to make
// that bound irrelevant in practice.
type Flusher struct {
	store    Store
	readings *buffer.RingBuffer[types.Reading]
	alerts   *buffer.RingBuffer[types.Alert]
	interval time.Duration

	// High-water marks: last successfully persisted ID per entity.
	readingHWM int64
	alertHWM   int64

	mu      sync.Mutex // serializes Start/Stop
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	log *slog.Logger
}

// New creates a Flusher. interval <= 0 uses DefaultInterval.
func New(store Store, readings *buffer.RingBuffer[types.Reading], alerts *buffer.RingBuffer[types.Alert], interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Flusher{
		store:    store,
		readings: readings,
		alerts:   alerts,
		interval: interval,
		log:      logging.Component("flusher"),
	}
}

// Start launches the flush worker. Idempotent.
func (f *Flusher) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.running = true

	f.wg.Add(1)
	go f.run(ctx)

	f.log.Info("flusher started", "interval", f.interval)
}

// Stop halts the worker, runs a final flush, and waits for completion.
// Idempotent.
func (f *Flusher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return
	}

	f.cancel()
	f.wg.Wait()
	f.running = false

	// Final drain so a clean shutdown leaves nothing unpersisted.
	f.FlushOnce(context.Background())

	f.log.Info("flusher stopped")
}

// run executes flush cycles on the configured interval.
func (f *Flusher) run(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.FlushOnce(ctx)
		}
	}
}

// FlushOnce runs one flush cycle for both entity types independently.
// A failure leaves the corresponding high-water mark unchanged so the
// next cycle retries the same batch; failures are never fatal.
func (f *Flusher) FlushOnce(ctx context.Context) {
	f.flushReadings(ctx)
	f.flushAlerts(ctx)
}

func (f *Flusher) flushReadings(ctx context.Context) {
	batch := f.readings.GetAfter(f.readingHWM)
	if len(batch) == 0 {
		return
	}

	if err := f.store.InsertReadings(ctx, batch); err != nil {
		metrics.FlushErrors.Inc()
		f.log.Error("flush readings", "error", err, "batch", len(batch))
		return
	}

	f.readingHWM = batch[len(batch)-1].ID
	metrics.FlushedRows.WithLabelValues("readings").Add(float64(len(batch)))
	f.log.Debug("flushed readings", "count", len(batch), "hwm", f.readingHWM)
}

func (f *Flusher) flushAlerts(ctx context.Context) {
	batch := f.alerts.GetAfter(f.alertHWM)
	if len(batch) == 0 {
		return
	}

	if err := f.store.InsertAlerts(ctx, batch); err != nil {
		metrics.FlushErrors.Inc()
		f.log.Error("flush alerts", "error", err, "batch", len(batch))
		return
	}

	f.alertHWM = batch[len(batch)-1].ID
	metrics.FlushedRows.WithLabelValues("alerts").Add(float64(len(batch)))
	f.log.Debug("flushed alerts", "count", len(batch), "hwm", f.alertHWM)
}

// HighWaterMarks returns the last persisted reading and alert IDs.
func (f *Flusher) HighWaterMarks() (reading, alert int64) {
	return f.readingHWM, f.alertHWM
}
