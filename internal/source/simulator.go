package source

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/fluxmon/fluxmon/internal/types"
)

// Default sensor fleet for the simulator.
var (
	defaultSensorIDs = []string{"TEMP_001", "TEMP_002", "TEMP_003", "PRESSURE_001", "HUMIDITY_001"}
	defaultLocations = []string{"Room A", "Room B", "Room C", "Outdoor", "Basement"}
)

// Simulator generates plausible sensor readings at a fixed interval.
// Temperature sensors hover around 20 °C, pressure around 1013.25 hPa,
// humidity around 50 %, each with ±5 uniform noise.
type Simulator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	sensorIDs []string
	locations []string
	interval  time.Duration
	timer     *time.Timer
}

// NewSimulator creates a Simulator emitting one reading per interval.
func NewSimulator(interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Simulator{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sensorIDs: defaultSensorIDs,
		locations: defaultLocations,
		interval:  interval,
	}
}

// Next blocks for the configured interval and returns a generated
// reading, or the context error if cancelled first.
func (s *Simulator) Next(ctx context.Context) (types.Reading, error) {
	t := time.NewTimer(s.interval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return types.Reading{}, ctx.Err()
	case <-t.C:
		return s.generate(), nil
	}
}

// generate produces a single random reading.
func (s *Simulator) generate() types.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	sensorID := s.sensorIDs[s.rng.Intn(len(s.sensorIDs))]
	location := s.locations[s.rng.Intn(len(s.locations))]

	base := 50.0
	unit := "%"
	switch {
	case strings.HasPrefix(sensorID, "TEMP"):
		base = 20.0
		unit = "°C"
	case strings.HasPrefix(sensorID, "PRESSURE"):
		base = 1013.25
		unit = "hPa"
	}

	value := base + (s.rng.Float64()-0.5)*10 // ±5 variation

	return types.Reading{
		SensorID:  sensorID,
		Value:     math.Round(value*100) / 100,
		Timestamp: time.Now().UTC(),
		Unit:      unit,
		Location:  location,
	}
}
