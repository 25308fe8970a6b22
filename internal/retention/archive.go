package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/fluxmon/fluxmon/internal/types"
)

// ReadingRow is the Parquet layout for an archived reading.
type ReadingRow struct {
	ID          int64   `parquet:"id"`
	SensorID    string  `parquet:"sensor_id,zstd"`
	Value       float64 `parquet:"value"`
	TimestampMs int64   `parquet:"timestamp_ms"`
	Unit        string  `parquet:"unit,zstd"`
	Location    string  `parquet:"location,zstd"`
}

// ParquetArchiver writes expired reading rows to timestamped Parquet
// files before the sweeper deletes them from the durable store.
type ParquetArchiver struct {
	dir string
}

// NewParquetArchiver creates an archiver rooted at dir, creating it if
// needed.
func NewParquetArchiver(dir string) (*ParquetArchiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &ParquetArchiver{dir: dir}, nil
}

// ArchiveReadings writes the batch to a Parquet file named after the
// sweep cutoff. An existing file for the same cutoff is overwritten,
// which keeps retries after a partial sweep idempotent.
func (a *ParquetArchiver) ArchiveReadings(readings []types.Reading, cutoff time.Time) error {
	if len(readings) == 0 {
		return nil
	}

	rows := make([]ReadingRow, len(readings))
	for i, r := range readings {
		rows[i] = ReadingRow{
			ID:          r.ID,
			SensorID:    r.SensorID,
			Value:       r.Value,
			TimestampMs: r.Timestamp.UnixMilli(),
			Unit:        r.Unit,
			Location:    r.Location,
		}
	}

	name := fmt.Sprintf("readings-%s.parquet", cutoff.UTC().Format("2006-01-02_15-04"))
	path := filepath.Join(a.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}

	w := parquet.NewGenericWriter[ReadingRow](f)
	if _, err := w.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("write archive rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close archive writer: %w", err)
	}
	return f.Close()
}
