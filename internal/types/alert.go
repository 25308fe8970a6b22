package types

import "time"

// AlertTypeAnomaly is the alert category produced by the anomaly detector.
const AlertTypeAnomaly = "Anomaly"

// Alert represents an anomaly flagged against a single reading.
// An Alert is immutable once created; the Resolved flag exists for
// downstream consumers and is never mutated by the pipeline itself.
type Alert struct {
	// ID is a monotonically increasing identifier assigned at creation.
	ID int64

	// SensorID identifies the sensor that triggered the alert.
	SensorID string

	// Type is the alert category label.
	Type string

	// Message is a free-text description of the alert.
	Message string

	// Value is the reading value that triggered the alert.
	Value float64

	// Threshold is the decision boundary used by the detector for this
	// reading: mean + z-threshold * stddev, in value units.
	Threshold float64

	// Timestamp is the triggering reading's timestamp.
	Timestamp time.Time

	// Resolved indicates whether the alert has been acknowledged.
	Resolved bool
}

// RecordID returns the alert's identifier.
func (a Alert) RecordID() int64 { return a.ID }

// RecordTime returns the alert's timestamp.
func (a Alert) RecordTime() time.Time { return a.Timestamp }
