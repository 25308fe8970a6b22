// Package metrics exposes Prometheus collectors for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsIngested counts readings accepted by the ingestion engine.
	ReadingsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxmon_readings_ingested_total",
		Help: "Total sensor readings accepted by the ingestion engine.",
	})

	// AnomaliesDetected counts readings flagged as anomalous.
	AnomaliesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxmon_anomalies_detected_total",
		Help: "Total readings flagged as anomalous.",
	})

	// BroadcastsDropped counts items dropped because a subscriber queue
	// was full.
	BroadcastsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxmon_broadcasts_dropped_total",
		Help: "Items dropped due to full subscriber queues.",
	})

	// Subscribers tracks the current number of live subscribers per stream.
	Subscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fluxmon_subscribers",
		Help: "Current number of live subscribers.",
	}, []string{"stream"})

	// FlushedRows counts rows persisted to the durable store per entity.
	FlushedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxmon_flushed_rows_total",
		Help: "Rows persisted to the durable store.",
	}, []string{"entity"})

	// FlushErrors counts failed flush cycles.
	FlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxmon_flush_errors_total",
		Help: "Failed persistence flush cycles.",
	})

	// SweptRows counts rows deleted by the retention sweeper per entity.
	SweptRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxmon_swept_rows_total",
		Help: "Rows deleted by the retention sweeper.",
	}, []string{"entity"})

	// SweepErrors counts failed retention sweep cycles.
	SweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxmon_sweep_errors_total",
		Help: "Failed retention sweep cycles.",
	})
)
