package anomaly

import (
	"math"
	"testing"
	"time"

	"github.com/fluxmon/fluxmon/internal/types"
)

// window returns n readings for sensorID with the given values and
// increasing timestamps.
func window(sensorID string, values ...float64) []types.Reading {
	base := time.Now()
	out := make([]types.Reading, len(values))
	for i, v := range values {
		out[i] = types.Reading{
			SensorID:  sensorID,
			Value:     v,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

// alternating returns n values alternating between a and b.
// With a=10, b=20 the population has mean 15 and stddev 5.
func alternating(n int, a, b float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = a
		} else {
			out[i] = b
		}
	}
	return out
}

func TestDetector_TooFewReadings(t *testing.T) {
	d := New(0, 0, 0) // defaults

	recent := window("TEMP_001", alternating(9, 10, 20)...)
	r := types.Reading{SensorID: "TEMP_001", Value: 1e9, Timestamp: time.Now()}

	if d.IsAnomaly(r, recent) {
		t.Error("fewer than 10 same-sensor readings must never be anomalous")
	}
}

func TestDetector_IgnoresOtherSensors(t *testing.T) {
	d := New(0, 0, 0)

	// 20 readings, but only 5 from the target sensor.
	recent := append(
		window("TEMP_001", alternating(5, 10, 20)...),
		window("TEMP_002", alternating(15, 10, 20)...)...)
	r := types.Reading{SensorID: "TEMP_001", Value: 1e9, Timestamp: time.Now()}

	if d.IsAnomaly(r, recent) {
		t.Error("other sensors' readings must not count toward the minimum")
	}
}

func TestDetector_ConstantSignal(t *testing.T) {
	d := New(0, 0, 0)

	constant := make([]float64, 50)
	for i := range constant {
		constant[i] = 42.0
	}
	recent := window("TEMP_001", constant...)
	r := types.Reading{SensorID: "TEMP_001", Value: 1e9, Timestamp: time.Now()}

	if d.IsAnomaly(r, recent) {
		t.Error("zero stddev must never be flagged regardless of value")
	}
}

func TestDetector_BoundaryIsStrict(t *testing.T) {
	d := New(0, 0, 0)

	// mean=15, population stddev=5.
	recent := window("TEMP_001", alternating(10, 10, 20)...)

	// Exactly mu + 2.5*sigma is not anomalous.
	at := types.Reading{SensorID: "TEMP_001", Value: 15 + 2.5*5, Timestamp: time.Now()}
	if d.IsAnomaly(at, recent) {
		t.Error("z == threshold exactly must not be anomalous (strict greater-than)")
	}

	// Just above is.
	above := types.Reading{SensorID: "TEMP_001", Value: 15 + 2.50001*5, Timestamp: time.Now()}
	if !d.IsAnomaly(above, recent) {
		t.Error("z just above threshold must be anomalous")
	}
}

func TestDetector_VerdictCarriesRealBoundary(t *testing.T) {
	d := New(0, 0, 0)

	recent := window("TEMP_001", alternating(10, 10, 20)...)
	r := types.Reading{SensorID: "TEMP_001", Value: 100, Unit: "°C", Timestamp: time.Now()}

	v := d.Evaluate(r, recent)
	if !v.Anomalous {
		t.Fatal("expected anomalous verdict")
	}

	wantBoundary := 15 + 2.5*5.0
	if math.Abs(v.Boundary-wantBoundary) > 1e-9 {
		t.Errorf("expected boundary=%v, got %v", wantBoundary, v.Boundary)
	}

	alert := d.NewAlert(r, v)
	if alert.Threshold != v.Boundary {
		t.Errorf("alert threshold must be the verdict boundary, got %v", alert.Threshold)
	}
	if alert.Type != types.AlertTypeAnomaly {
		t.Errorf("expected alert type %q, got %q", types.AlertTypeAnomaly, alert.Type)
	}
	if alert.Resolved {
		t.Error("new alerts must not be resolved")
	}
	if !alert.Timestamp.Equal(r.Timestamp) {
		t.Error("alert timestamp must match the triggering reading")
	}
}

func TestDetector_WindowTruncation(t *testing.T) {
	// A small window must only consider the most recent readings.
	d := New(10, 10, 2.5)

	// 50 old extreme values followed by 10 recent calm ones; window=10
	// sees only the calm tail, so a calm reading is not anomalous.
	values := make([]float64, 0, 60)
	for i := 0; i < 50; i++ {
		values = append(values, 1000)
	}
	values = append(values, alternating(10, 10, 20)...)
	recent := window("TEMP_001", values...)

	r := types.Reading{SensorID: "TEMP_001", Value: 15, Timestamp: time.Now()}
	if d.IsAnomaly(r, recent) {
		t.Error("readings outside the window must not affect the verdict")
	}
}
