// Package config defines the fluxmon configuration, loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete fluxmon configuration.
type Config struct {
	// Buffers configures the in-memory history buffers.
	Buffers BuffersConfig `yaml:"buffers"`

	// Anomaly configures the z-score anomaly detector.
	Anomaly AnomalyConfig `yaml:"anomaly"`

	// Source configures the simulated sensor source.
	Source SourceConfig `yaml:"source"`

	// Flush configures the persistence flusher.
	Flush FlushConfig `yaml:"flush"`

	// Retention configures the durable-store retention sweeper.
	Retention RetentionConfig `yaml:"retention"`

	// Store configures the durable store.
	Store StoreConfig `yaml:"store"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// BuffersConfig configures the in-memory history buffers.
type BuffersConfig struct {
	// Readings is the reading buffer capacity.
	Readings int `yaml:"readings"`

	// Alerts is the alert buffer capacity.
	Alerts int `yaml:"alerts"`
}

// AnomalyConfig configures the z-score anomaly detector.
type AnomalyConfig struct {
	// Window is the number of recent same-sensor readings to consider.
	Window int `yaml:"window"`

	// MinReadings is the minimum window size for statistical analysis.
	MinReadings int `yaml:"min_readings"`

	// ZThreshold is the z-score above which a reading is anomalous.
	ZThreshold float64 `yaml:"z_threshold"`
}

// SourceConfig configures the simulated sensor source.
type SourceConfig struct {
	// Interval between generated readings.
	Interval Duration `yaml:"interval"`
}

// FlushConfig configures the persistence flusher.
type FlushConfig struct {
	// Interval between flush cycles.
	Interval Duration `yaml:"interval"`
}

// RetentionConfig configures the retention sweeper.
type RetentionConfig struct {
	// Interval between sweep cycles.
	Interval Duration `yaml:"interval"`

	// Horizon is the maximum age of durable rows before deletion.
	Horizon Duration `yaml:"horizon"`

	// ArchiveDir, if set, receives Parquet exports of expired reading
	// rows before they are deleted.
	ArchiveDir string `yaml:"archive_dir"`
}

// StoreConfig configures the durable store.
type StoreConfig struct {
	// Path is the DuckDB database file. Empty means in-memory.
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Listen is the metrics HTTP listen address. Empty disables it.
	Listen string `yaml:"listen"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Buffers: BuffersConfig{
			Readings: 100000,
			Alerts:   10000,
		},
		Anomaly: AnomalyConfig{
			Window:      100,
			MinReadings: 10,
			ZThreshold:  2.5,
		},
		Source: SourceConfig{
			Interval: Duration(10 * time.Millisecond),
		},
		Flush: FlushConfig{
			Interval: Duration(5 * time.Second),
		},
		Retention: RetentionConfig{
			Interval: Duration(time.Hour),
			Horizon:  Duration(24 * time.Hour),
		},
		Store: StoreConfig{
			Path: "fluxmon.db",
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
	}
}

// Load reads configuration from a YAML file, applying defaults for any
// omitted values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Buffers.Readings <= 0 {
		return fmt.Errorf("buffers.readings must be positive, got %d", c.Buffers.Readings)
	}
	if c.Buffers.Alerts <= 0 {
		return fmt.Errorf("buffers.alerts must be positive, got %d", c.Buffers.Alerts)
	}
	if c.Anomaly.Window < c.Anomaly.MinReadings {
		return fmt.Errorf("anomaly.window (%d) must be >= anomaly.min_readings (%d)",
			c.Anomaly.Window, c.Anomaly.MinReadings)
	}
	if c.Anomaly.ZThreshold <= 0 {
		return fmt.Errorf("anomaly.z_threshold must be positive, got %f", c.Anomaly.ZThreshold)
	}
	if c.Source.Interval <= 0 {
		return fmt.Errorf("source.interval must be positive, got %s", c.Source.Interval.Duration())
	}
	if c.Flush.Interval <= 0 {
		return fmt.Errorf("flush.interval must be positive, got %s", c.Flush.Interval.Duration())
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("retention.interval must be positive, got %s", c.Retention.Interval.Duration())
	}
	if c.Retention.Horizon <= 0 {
		return fmt.Errorf("retention.horizon must be positive, got %s", c.Retention.Horizon.Duration())
	}
	return nil
}
