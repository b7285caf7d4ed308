package trace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmurray2011/recency/pkg/lru"
	"golang.org/x/sync/errgroup"
)

// Options controls a replay.
type Options struct {
	// Source labels the result, usually the URI the ops came from.
	Source string

	// RecordSteps keeps a per-op outcome list in the result.
	RecordSteps bool
}

// Step is the outcome of a single replayed op.
type Step struct {
	Op      Op     `json:"op" yaml:"op"`
	Hit     bool   `json:"hit" yaml:"hit"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
	Evicted string `json:"evicted,omitempty" yaml:"evicted,omitempty"`
}

// Result summarises one trace replayed at one capacity.
type Result struct {
	RunID     string   `json:"run_id" yaml:"run_id"`
	Source    string   `json:"source,omitempty" yaml:"source,omitempty"`
	Capacity  int      `json:"capacity" yaml:"capacity"`
	Ops       int      `json:"ops" yaml:"ops"`
	Gets      int      `json:"gets" yaml:"gets"`
	Puts      int      `json:"puts" yaml:"puts"`
	Hits      uint64   `json:"hits" yaml:"hits"`
	Misses    uint64   `json:"misses" yaml:"misses"`
	Evictions uint64   `json:"evictions" yaml:"evictions"`
	HitRatio  float64  `json:"hit_ratio" yaml:"hit_ratio"`
	Final     []string `json:"final" yaml:"final"` // most to least recently used
	Steps     []Step   `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Replay runs ops in order against a fresh cache of the given capacity.
// It fails only if the capacity is invalid.
func Replay(ops []Op, capacity int, opts Options) (*Result, error) {
	var evicted string
	cache, err := lru.New(capacity, lru.WithEvictCallback(func(key, _ string) {
		evicted = key
	}))
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:    uuid.NewString(),
		Source:   opts.Source,
		Capacity: capacity,
		Ops:      len(ops),
	}
	if opts.RecordSteps {
		res.Steps = make([]Step, 0, len(ops))
	}

	for _, op := range ops {
		evicted = ""
		step := Step{Op: op}

		switch op.Kind {
		case KindGet:
			res.Gets++
			step.Value, step.Hit = cache.Get(op.Key)
		case KindPut:
			res.Puts++
			cache.Put(op.Key, op.Value)
		case KindAccess:
			res.Gets++
			step.Value, step.Hit = cache.Get(op.Key)
			if !step.Hit {
				value := op.Value
				if value == "" {
					value = op.Key
				}
				res.Puts++
				cache.Put(op.Key, value)
			}
		default:
			return nil, fmt.Errorf("line %d: unsupported operation %q", op.Line, op.Kind)
		}

		step.Evicted = evicted
		if opts.RecordSteps {
			res.Steps = append(res.Steps, step)
		}
	}

	stats := cache.Stats()
	res.Hits = stats.Hits
	res.Misses = stats.Misses
	res.Evictions = stats.Evictions
	res.HitRatio = stats.HitRatio()
	res.Final = cache.Keys()

	return res, nil
}

// Sweep replays the same ops at every capacity, at most workers at a time
// (workers <= 0 means no limit). Each replay owns its cache, so nothing is
// shared between goroutines except the read-only ops slice. Results are in
// the order of capacities.
func Sweep(ctx context.Context, ops []Op, capacities []int, workers int, opts Options) ([]*Result, error) {
	results := make([]*Result, len(capacities))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, capacity := range capacities {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := Replay(ops, capacity, opts)
			if err != nil {
				return fmt.Errorf("capacity %d: %w", capacity, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
