package types

import "time"

// Reading represents a single measurement from a sensor.
// This is the primary data unit flowing through the pipeline.
// A Reading is immutable once created.
type Reading struct {
	// ID is a monotonically increasing identifier assigned at ingestion.
	ID int64

	// SensorID identifies the originating sensor (e.g., "TEMP_001").
	SensorID string

	// Value is the measured value in the sensor's unit.
	Value float64

	// Timestamp is the measurement time.
	Timestamp time.Time

	// Unit is the measurement unit label (e.g., "°C", "hPa", "%").
	Unit string

	// Location is the physical location tag (e.g., "Room A").
	Location string
}

// RecordID returns the reading's identifier.
func (r Reading) RecordID() int64 { return r.ID }

// RecordTime returns the reading's timestamp.
func (r Reading) RecordTime() time.Time { return r.Timestamp }
