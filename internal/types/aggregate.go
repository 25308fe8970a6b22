package types

import "time"

// Aggregate holds per-sensor statistics over a trailing time window.
// Aggregates are derived on demand from the in-memory history and are
// never persisted.
type Aggregate struct {
	SensorID string

	Min     float64
	Max     float64
	Average float64
	Count   int

	// Percentiles over the window, approximated with DDSketch.
	P50 float64
	P95 float64
	P99 float64

	WindowStart time.Time
	WindowEnd   time.Time

	// Throughput is readings per second over the window.
	Throughput float64
}
