// Package store provides the durable store for readings and alerts.
//
// It uses DuckDB as the backing database. Both tables mirror the domain
// attribute sets and carry indexes usable for timestamp-range scans and
// sensor-id lookups.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds store configuration options.
type Config struct {
	// Path is the database file. Empty opens an in-memory database.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// QueryTimeout is the default timeout for queries.
	QueryTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns: 4,
		QueryTimeout: 30 * time.Second,
	}
}

// Store provides durable persistence for readings and alerts.
//
// Store is safe for concurrent use; the flusher appends and the sweeper
// deletes by timestamp, so they never need to coordinate directly.
type Store struct {
	db     *sql.DB
	config Config
	mu     sync.Mutex
	closed bool
}

// New opens the store and bootstraps the schema.
func New(cfg Config) (*Store, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, config: cfg}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrate creates the schema if it does not exist.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS readings (
			id         BIGINT PRIMARY KEY,
			sensor_id  VARCHAR NOT NULL,
			value      DOUBLE NOT NULL,
			timestamp  TIMESTAMP NOT NULL,
			unit       VARCHAR NOT NULL,
			location   VARCHAR NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_sensor ON readings (sensor_id)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id         BIGINT PRIMARY KEY,
			sensor_id  VARCHAR NOT NULL,
			type       VARCHAR NOT NULL,
			message    VARCHAR NOT NULL,
			value      DOUBLE NOT NULL,
			threshold  DOUBLE NOT NULL,
			timestamp  TIMESTAMP NOT NULL,
			resolved   BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_sensor ON alerts (sensor_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// Close closes the store. It is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// DB returns the underlying database connection.
// Use with caution - prefer using Store methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// transaction executes fn within a transaction, rolling back on error.
func (s *Store) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
