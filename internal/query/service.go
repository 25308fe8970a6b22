// Package query is the read surface consumed by the routing layer:
// bounded history queries, on-demand aggregates, and live streams.
package query

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/fluxmon/fluxmon/internal/buffer"
	"github.com/fluxmon/fluxmon/internal/fanout"
	"github.com/fluxmon/fluxmon/internal/logging"
	"github.com/fluxmon/fluxmon/internal/types"
)

// Defaults and bounds for query parameters. Out-of-range values are
// clamped, never rejected.
const (
	DefaultReadingLimit  = 1000
	DefaultAlertLimit    = 100
	DefaultWindowSeconds = 60
)

// Service answers queries against the in-memory history and hands out
// live subscriptions. All reads are snapshot copies; nothing internal
// escapes.
type Service struct {
	readings *buffer.RingBuffer[types.Reading]
	alerts   *buffer.RingBuffer[types.Alert]

	readingFan *fanout.Registry[types.Reading]
	alertFan   *fanout.Registry[types.Alert]

	log *slog.Logger
}

// New creates a query service over the given buffers and fan-out
// registries.
func New(
	readings *buffer.RingBuffer[types.Reading],
	alerts *buffer.RingBuffer[types.Alert],
	readingFan *fanout.Registry[types.Reading],
	alertFan *fanout.Registry[types.Alert],
) *Service {
	return &Service{
		readings:   readings,
		alerts:     alerts,
		readingFan: readingFan,
		alertFan:   alertFan,
		log:        logging.Component("query"),
	}
}

// LatestReadings returns up to limit readings, oldest to newest.
// limit <= 0 uses the default; larger values are clamped to the buffer
// capacity.
func (s *Service) LatestReadings(limit int) []types.Reading {
	if limit <= 0 {
		limit = DefaultReadingLimit
	}
	if limit > s.readings.Cap() {
		limit = s.readings.Cap()
	}
	return s.readings.GetLatest(limit)
}

// RecentAlerts returns up to limit alerts, oldest to newest.
func (s *Service) RecentAlerts(limit int) []types.Alert {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	if limit > s.alerts.Cap() {
		limit = s.alerts.Cap()
	}
	return s.alerts.GetLatest(limit)
}

// Aggregates computes one Aggregate per sensor observed in the trailing
// windowSeconds window, fresh on every call. windowSeconds <= 0 uses the
// default.
func (s *Service) Aggregates(windowSeconds int) []types.Aggregate {
	if windowSeconds <= 0 {
		windowSeconds = DefaultWindowSeconds
	}

	windowEnd := time.Now().UTC()
	windowStart := windowEnd.Add(-time.Duration(windowSeconds) * time.Second)
	recent := s.readings.GetRange(windowStart, windowEnd)

	bySensor := make(map[string][]types.Reading)
	for _, r := range recent {
		bySensor[r.SensorID] = append(bySensor[r.SensorID], r)
	}

	aggregates := make([]types.Aggregate, 0, len(bySensor))
	for sensorID, group := range bySensor {
		aggregates = append(aggregates, s.aggregate(sensorID, group, windowStart, windowEnd, windowSeconds))
	}

	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].SensorID < aggregates[j].SensorID
	})
	return aggregates
}

// aggregate computes statistics for one sensor's readings.
func (s *Service) aggregate(sensorID string, group []types.Reading, windowStart, windowEnd time.Time, windowSeconds int) types.Aggregate {
	agg := types.Aggregate{
		SensorID:    sensorID,
		Min:         group[0].Value,
		Max:         group[0].Value,
		Count:       len(group),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Throughput:  float64(len(group)) / float64(windowSeconds),
	}

	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		sketch = nil
	}

	var sum float64
	for _, r := range group {
		sum += r.Value
		if r.Value < agg.Min {
			agg.Min = r.Value
		}
		if r.Value > agg.Max {
			agg.Max = r.Value
		}
		if sketch != nil {
			sketch.Add(r.Value)
		}
	}
	agg.Average = sum / float64(len(group))

	if sketch != nil {
		agg.P50, _ = sketch.GetValueAtQuantile(0.50)
		agg.P95, _ = sketch.GetValueAtQuantile(0.95)
		agg.P99, _ = sketch.GetValueAtQuantile(0.99)
	}

	return agg
}

// StreamReadings returns a fresh live subscription yielding readings
// broadcast after this call. Cancelling ctx unsubscribes cleanly; the
// returned channel is closed when the subscription ends.
func (s *Service) StreamReadings(ctx context.Context) <-chan types.Reading {
	sub := s.readingFan.Subscribe(0)
	go func() {
		<-ctx.Done()
		sub.Close()
		s.log.Info("readings stream closed", "id", sub.ID())
	}()
	return sub.C()
}

// StreamAlerts returns a fresh live subscription yielding alerts
// broadcast after this call. Cancelling ctx unsubscribes cleanly.
func (s *Service) StreamAlerts(ctx context.Context) <-chan types.Alert {
	sub := s.alertFan.Subscribe(0)
	go func() {
		<-ctx.Done()
		sub.Close()
		s.log.Info("alerts stream closed", "id", sub.ID())
	}()
	return sub.C()
}
