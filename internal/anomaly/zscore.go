// Package anomaly implements z-score based anomaly detection over a
// window of recent same-sensor readings.
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/fluxmon/fluxmon/internal/types"
)

// Default detector parameters.
const (
	DefaultWindow      = 100
	DefaultMinReadings = 10
	DefaultZThreshold  = 2.5
)

// Detector flags readings whose z-score against the recent same-sensor
// window strictly exceeds a fixed threshold. Detector is stateless and
// safe for concurrent use.
type Detector struct {
	window      int
	minReadings int
	zThreshold  float64
}

// Verdict is the result of a single evaluation. The caller must evaluate
// once per reading and thread the Verdict through; re-evaluating risks
// inconsistent results if the window composition changes between calls.
type Verdict struct {
	Anomalous bool

	// Window statistics. Zero when fewer than the minimum number of
	// same-sensor readings were available.
	Mean   float64
	StdDev float64
	ZScore float64

	// Boundary is the actual decision boundary used for this reading:
	// mean + zThreshold*stddev.
	Boundary float64
}

// New creates a Detector with the given parameters. Non-positive values
// fall back to the defaults.
func New(window, minReadings int, zThreshold float64) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	if minReadings <= 0 {
		minReadings = DefaultMinReadings
	}
	if zThreshold <= 0 {
		zThreshold = DefaultZThreshold
	}
	return &Detector{
		window:      window,
		minReadings: minReadings,
		zThreshold:  zThreshold,
	}
}

// Window returns the configured window size.
func (d *Detector) Window() int { return d.window }

// Evaluate classifies a reading against the recent window. The window may
// contain readings from any sensor; only those matching the reading's
// SensorID are considered, most recent first, up to the window size.
func (d *Detector) Evaluate(reading types.Reading, recent []types.Reading) Verdict {
	values := d.sameSensorValues(reading.SensorID, recent)
	if len(values) < d.minReadings {
		return Verdict{}
	}

	mean, stddev := meanStdDev(values)

	// A constant signal is never flagged.
	if stddev == 0 {
		return Verdict{Mean: mean}
	}

	z := math.Abs(reading.Value-mean) / stddev
	return Verdict{
		Anomalous: z > d.zThreshold,
		Mean:      mean,
		StdDev:    stddev,
		ZScore:    z,
		Boundary:  mean + d.zThreshold*stddev,
	}
}

// IsAnomaly reports whether the reading is anomalous against the window.
// Prefer Evaluate when the verdict is also needed to build an alert.
func (d *Detector) IsAnomaly(reading types.Reading, recent []types.Reading) bool {
	return d.Evaluate(reading, recent).Anomalous
}

// NewAlert builds an Alert for an anomalous reading, carrying the actual
// decision boundary from the verdict.
func (d *Detector) NewAlert(reading types.Reading, verdict Verdict) types.Alert {
	return types.Alert{
		SensorID:  reading.SensorID,
		Type:      types.AlertTypeAnomaly,
		Message:   fmt.Sprintf("Anomaly detected: %v %s", reading.Value, reading.Unit),
		Value:     reading.Value,
		Threshold: verdict.Boundary,
		Timestamp: reading.Timestamp,
		Resolved:  false,
	}
}

// sameSensorValues returns the values of the most recent window-many
// readings for the given sensor, selected by timestamp.
func (d *Detector) sameSensorValues(sensorID string, recent []types.Reading) []float64 {
	matched := make([]types.Reading, 0, len(recent))
	for _, r := range recent {
		if r.SensorID == sensorID {
			matched = append(matched, r)
		}
	}

	// Most recent first, then truncate to the window.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if len(matched) > d.window {
		matched = matched[:d.window]
	}

	values := make([]float64, len(matched))
	for i, r := range matched {
		values[i] = r.Value
	}
	return values
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(values []float64) (mean, stddev float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}
