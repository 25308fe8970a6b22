// Package ingest owns the reading ingestion loop: append to history,
// classify, and fan out.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fluxmon/fluxmon/internal/anomaly"
	"github.com/fluxmon/fluxmon/internal/buffer"
	"github.com/fluxmon/fluxmon/internal/fanout"
	"github.com/fluxmon/fluxmon/internal/logging"
	"github.com/fluxmon/fluxmon/internal/metrics"
	"github.com/fluxmon/fluxmon/internal/source"
	"github.com/fluxmon/fluxmon/internal/types"
)

// Engine runs the single ingestion loop. Start and Stop are idempotent
// and serialized against each other; Stop blocks until the in-flight
// iteration has fully completed.
type Engine struct {
	mu      sync.Mutex // serializes Start/Stop transitions
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	src      source.Source
	readings *buffer.RingBuffer[types.Reading]
	alerts   *buffer.RingBuffer[types.Alert]
	detector *anomaly.Detector

	readingFan *fanout.Registry[types.Reading]
	alertFan   *fanout.Registry[types.Alert]

	readingSeq atomic.Int64
	alertSeq   atomic.Int64

	log *slog.Logger
}

// Config wires the engine's collaborators.
type Config struct {
	Source     source.Source
	Readings   *buffer.RingBuffer[types.Reading]
	Alerts     *buffer.RingBuffer[types.Alert]
	Detector   *anomaly.Detector
	ReadingFan *fanout.Registry[types.Reading]
	AlertFan   *fanout.Registry[types.Alert]
}

// New creates an Engine in the Stopped state.
func New(cfg Config) *Engine {
	return &Engine{
		src:        cfg.Source,
		readings:   cfg.Readings,
		alerts:     cfg.Alerts,
		detector:   cfg.Detector,
		readingFan: cfg.ReadingFan,
		alertFan:   cfg.AlertFan,
		log:        logging.Component("ingest"),
	}
}

// Start begins the ingestion loop. Calling Start on a running engine is
// a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running = true

	e.wg.Add(1)
	go e.run(ctx)

	e.log.Info("ingestion started")
}

// Stop halts the loop and blocks until the current iteration has fully
// completed. Calling Stop on a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.cancel()
	e.wg.Wait()
	e.running = false

	e.log.Info("ingestion stopped")
}

// IsRunning reports whether the loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// run is the ingestion loop. A generation failure is logged and the tick
// skipped; it never aborts the loop.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	for {
		reading, err := e.src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			e.log.Error("generate reading", "error", err)
			continue
		}

		e.Ingest(reading)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Ingest processes one reading: append to the history buffer, classify
// exactly once, append any resulting alert, then publish both.
func (e *Engine) Ingest(reading types.Reading) {
	reading.ID = e.readingSeq.Add(1)
	e.readings.Add(reading)
	metrics.ReadingsIngested.Inc()

	window := e.readings.GetLatest(e.detector.Window())
	verdict := e.detector.Evaluate(reading, window)

	var alert types.Alert
	if verdict.Anomalous {
		alert = e.detector.NewAlert(reading, verdict)
		alert.ID = e.alertSeq.Add(1)
		e.alerts.Add(alert)
		metrics.AnomaliesDetected.Inc()
		e.log.Warn("anomaly detected",
			"sensor", reading.SensorID,
			"value", reading.Value,
			"unit", reading.Unit,
			"zscore", verdict.ZScore,
			"boundary", verdict.Boundary)
	}

	e.readingFan.Broadcast(reading)
	if verdict.Anomalous {
		e.alertFan.Broadcast(alert)
	}
}
