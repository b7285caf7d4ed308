package source

import (
	"time"

	"github.com/jmurray2011/recency/internal/trace"
)

// Params narrows what a source returns. Sources without timestamps
// (local files, stdin) ignore the time window.
type Params struct {
	StartTime time.Time
	EndTime   time.Time
	Limit     int // maximum ops to return, 0 for no limit
}

// Metadata holds descriptive information about a source, used to label
// replay results and published metrics.
type Metadata struct {
	Type    string       // "file", "stdin", "cloudwatch"
	URI     string       // Original URI used to open the source
	Format  trace.Format // Trace encoding
	Profile string       // AWS profile (for cloudwatch)
	Region  string       // AWS region (for cloudwatch)
}

// Truncate applies params.Limit to ops.
func Truncate(ops []trace.Op, params Params) []trace.Op {
	if params.Limit > 0 && len(ops) > params.Limit {
		return ops[:params.Limit]
	}
	return ops
}
