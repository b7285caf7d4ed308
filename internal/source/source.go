package source

import (
	"context"

	"github.com/jmurray2011/recency/internal/trace"
)

// Source is the interface that all trace backends must implement.
type Source interface {
	// Ops loads the trace operations selected by params, in replay order.
	Ops(ctx context.Context, params Params) ([]trace.Op, error)

	// Type returns the source type identifier (e.g., "file", "stdin", "cloudwatch").
	Type() string

	// Metadata describes where the trace came from.
	Metadata() Metadata

	// Close releases any resources held by the source.
	Close() error
}
