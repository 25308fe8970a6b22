// Package pipeline wires the ingestion core together: history buffers,
// anomaly detector, fan-out registries, ingestion engine, persistence
// flusher, and retention sweeper.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fluxmon/fluxmon/internal/anomaly"
	"github.com/fluxmon/fluxmon/internal/buffer"
	"github.com/fluxmon/fluxmon/internal/config"
	"github.com/fluxmon/fluxmon/internal/fanout"
	"github.com/fluxmon/fluxmon/internal/ingest"
	"github.com/fluxmon/fluxmon/internal/logging"
	"github.com/fluxmon/fluxmon/internal/persist"
	"github.com/fluxmon/fluxmon/internal/query"
	"github.com/fluxmon/fluxmon/internal/retention"
	"github.com/fluxmon/fluxmon/internal/source"
	"github.com/fluxmon/fluxmon/internal/store"
	"github.com/fluxmon/fluxmon/internal/types"
)

// Pipeline owns the full ingestion/distribution core.
type Pipeline struct {
	Readings *buffer.RingBuffer[types.Reading]
	Alerts   *buffer.RingBuffer[types.Alert]

	Engine  *ingest.Engine
	Flusher *persist.Flusher
	Sweeper *retention.Sweeper
	Query   *query.Service
	Store   *store.Store

	log *slog.Logger
}

// New builds a Pipeline from configuration. The source may be nil, in
// which case the built-in simulator is used.
func New(cfg *config.Config, src source.Source) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if src == nil {
		src = source.NewSimulator(cfg.Source.Interval.Duration())
	}

	readings := buffer.New[types.Reading](cfg.Buffers.Readings)
	alerts := buffer.New[types.Alert](cfg.Buffers.Alerts)

	detector := anomaly.New(cfg.Anomaly.Window, cfg.Anomaly.MinReadings, cfg.Anomaly.ZThreshold)

	readingFan := fanout.NewRegistry[types.Reading]("readings")
	alertFan := fanout.NewRegistry[types.Alert]("alerts")

	storeCfg := store.DefaultConfig()
	storeCfg.Path = cfg.Store.Path
	st, err := store.New(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var archiver retention.Archiver
	if cfg.Retention.ArchiveDir != "" {
		pa, err := retention.NewParquetArchiver(cfg.Retention.ArchiveDir)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("create archiver: %w", err)
		}
		archiver = pa
	}

	engine := ingest.New(ingest.Config{
		Source:     src,
		Readings:   readings,
		Alerts:     alerts,
		Detector:   detector,
		ReadingFan: readingFan,
		AlertFan:   alertFan,
	})

	return &Pipeline{
		Readings: readings,
		Alerts:   alerts,
		Engine:   engine,
		Flusher:  persist.New(st, readings, alerts, cfg.Flush.Interval.Duration()),
		Sweeper:  retention.New(st, archiver, cfg.Retention.Interval.Duration(), cfg.Retention.Horizon.Duration()),
		Query:    query.New(readings, alerts, readingFan, alertFan),
		Store:    st,
		log:      logging.Component("pipeline"),
	}, nil
}

// Run starts every component and blocks until ctx is cancelled, then
// stops them in reverse dependency order and closes the store.
func (p *Pipeline) Run(ctx context.Context) error {
	p.Engine.Start()
	p.Flusher.Start()
	p.Sweeper.Start()

	p.log.Info("pipeline running")
	<-ctx.Done()

	// Engine first so no new items arrive, then flusher so the final
	// drain persists everything, then sweeper and store.
	p.Engine.Stop()
	p.Flusher.Stop()
	p.Sweeper.Stop()

	if err := p.Store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
