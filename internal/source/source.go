// Package source defines where sensor readings come from.
package source

import (
	"context"

	"github.com/fluxmon/fluxmon/internal/types"
)

// Source yields sensor readings one at a time. The ingestion engine is
// agnostic to whether the source is simulated or real hardware.
type Source interface {
	// Next returns the next reading. It may block until one is
	// available or the context is cancelled. A non-nil error marks a
	// failed generation; the caller skips that reading and continues.
	Next(ctx context.Context) (types.Reading, error)
}
