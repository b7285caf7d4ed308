package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmurray2011/recency/internal/cloudwatch"
	clerrors "github.com/jmurray2011/recency/internal/errors"
	"github.com/jmurray2011/recency/internal/output"
	"github.com/jmurray2011/recency/internal/source"
	"github.com/jmurray2011/recency/internal/trace"
	"github.com/jmurray2011/recency/pkg/lru"
	"github.com/jmurray2011/recency/pkg/timeutil"

	"github.com/spf13/cobra"
)

var (
	replayCapacity int
	replaySweep    string
	replayWorkers  int
	replaySteps    bool
	replayStart    string
	replayEnd      string
	replayLimit    int
	replayFormat   string
	replayPublish  string
)

var replayCmd = &cobra.Command{
	Use:   "replay [source]",
	Short: "Replay an access trace through the cache",
	Long: `Load cache operations from a trace source and replay them against a fresh
cache, reporting hits, misses, evictions and the hit ratio.

With --sweep the same trace is replayed once per capacity, concurrently,
each on its own cache. Results are listed in the order given.

When no source is given, default_source from ~/.recency/config.yaml is used.

Source URIs:
  /path/to/trace.txt                             Local file (shorthand)
  file:///path/to/*.trace?format=keys            Local files (glob)
  -  or  stdin://                                Standard input
  cloudwatch:///log-group?filter=x&match=re      AWS CloudWatch Logs
  @alias-name                                    Config alias

Examples:
  # Replay a trace file at the configured capacity
  recency replay ./access.trace

  # Show every step and its outcome
  recency replay ./access.trace -c 3 --steps

  # Compare capacities
  recency replay ./keys.txt --format keys --sweep 8,32,128,512 --workers 2

  # Replay keys from stdin
  cut -d' ' -f7 access.log | recency replay - --format keys

  # Replay the last 6 hours of CloudWatch logs and publish the results
  recency replay "cloudwatch:///web/access?match=path=(\S+)&format=keys" \
    --start 6h --sweep 128,512 --publish Recency/Web`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().IntVarP(&replayCapacity, "capacity", "c", DefaultCapacity, "Cache capacity (default from config)")
	replayCmd.Flags().StringVar(&replaySweep, "sweep", "", "Comma-separated capacities to compare (e.g. 16,64,256)")
	replayCmd.Flags().IntVarP(&replayWorkers, "workers", "w", 0, "Concurrent replays during a sweep (default from config)")
	replayCmd.Flags().BoolVar(&replaySteps, "steps", false, "Show the outcome of every op")
	replayCmd.Flags().StringVarP(&replayStart, "start", "s", "", "Start of the trace window (e.g. 2h, 2025-01-15T10:00:00Z)")
	replayCmd.Flags().StringVarP(&replayEnd, "end", "e", "", "End of the trace window (default now)")
	replayCmd.Flags().IntVarP(&replayLimit, "limit", "l", 0, "Replay at most this many ops")
	replayCmd.Flags().StringVar(&replayFormat, "format", "", "Trace format when the URI doesn't set one: ops, keys")
	replayCmd.Flags().StringVar(&replayPublish, "publish", "", "Publish results as CloudWatch metrics in this namespace")
}

func runReplay(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)

	format, err := output.ParseFormat(app.GetOutputFormat())
	if err != nil {
		return err
	}

	aliases, err := source.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	uri, err := resolveSourceURI(args, aliases)
	if err != nil {
		return err
	}

	capacities, err := replayCapacities(cmd, app, aliases)
	if err != nil {
		return err
	}
	if replaySteps && len(capacities) > 1 {
		return fmt.Errorf("--steps cannot be combined with --sweep")
	}

	params := source.Params{Limit: replayLimit}
	if replayStart != "" || replayEnd != "" {
		now := time.Now().UTC()
		params.StartTime, params.EndTime, err = parseWindow(replayStart, replayEnd, now)
		if err != nil {
			return err
		}
		for _, w := range timeutil.ValidateTimeRange(params.StartTime, params.EndTime, now) {
			app.Render.Warning("%s", w)
		}
	}

	src, err := source.OpenWithOptions(uri, source.OpenOptions{
		Profile: app.GetProfile(),
		Region:  app.GetRegion(),
		Format:  replayFormat,
		Stdin:   app.Stdin,
	})
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	meta := src.Metadata()
	app.Debugf("Source: %s (type %s, format %s)", meta.URI, meta.Type, meta.Format)

	app.Render.Status("Reading trace from %s...", meta.URI)
	ops, err := src.Ops(cmd.Context(), params)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		app.Render.Warning("trace is empty")
	}

	opts := trace.Options{Source: meta.URI, RecordSteps: replaySteps}

	var results []*trace.Result
	if len(capacities) == 1 {
		app.Render.Status("Replaying %d ops at capacity %d", len(ops), capacities[0])
		r, err := trace.Replay(ops, capacities[0], opts)
		if err != nil {
			return capacityError(capacities, err)
		}
		results = []*trace.Result{r}
	} else {
		workers := replayWorkers
		if workers <= 0 {
			workers = app.Config.Workers
		}
		app.Render.Status("Replaying %d ops at %d capacities (%d workers)", len(ops), len(capacities), workers)
		results, err = trace.Sweep(cmd.Context(), ops, capacities, workers, opts)
		if err != nil {
			return capacityError(capacities, err)
		}
	}

	formatter := output.NewFormatter(string(format), app.Out, rendererOptions(app)...)
	if replaySteps && format == output.FormatText {
		if err := formatter.FormatSteps(results[0].Steps); err != nil {
			return err
		}
		app.Render.Newline()
	}
	if err := formatter.FormatResults(results); err != nil {
		return err
	}

	if replayPublish != "" {
		sess, err := cloudwatch.LoadSession(cmd.Context(), app.GetProfile(), app.GetRegion())
		if err != nil {
			return fmt.Errorf("failed to create CloudWatch client: %w", err)
		}
		app.Debugf("Publishing with profile %q in region %s", sess.Profile(), sess.Region())
		publisher, err := cloudwatch.NewPublisher(sess.Metrics(), replayPublish)
		if err != nil {
			return err
		}
		app.Render.Status("Publishing metrics to %s...", replayPublish)
		sent, err := publisher.Publish(cmd.Context(), results)
		if err != nil {
			return err
		}
		app.Render.Status("Published %d datums to %s", sent, replayPublish)
	}

	return nil
}

// resolveSourceURI returns the source argument, or the configured default
// source when none was given.
func resolveSourceURI(args []string, aliases *source.Config) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if aliases.DefaultSource == "" {
		return "", &clerrors.SuggestiveError{
			Message: "no trace source given and no default_source configured",
			Suggestions: []string{
				"recency replay ./trace.txt",
				"recency replay @alias",
				"default_source: <alias> in " + source.ConfigPath(),
			},
			HelpCommand: "recency replay --help",
		}
	}
	return "@" + strings.TrimPrefix(aliases.DefaultSource, "@"), nil
}

// replayCapacities resolves the capacities to replay: --sweep, then
// --capacity, then default_capacity from the alias config, then the
// configured capacity.
func replayCapacities(cmd *cobra.Command, app *App, aliases *source.Config) ([]int, error) {
	if replaySweep != "" {
		return ParseCapacities(replaySweep)
	}
	if !cmd.Flags().Changed("capacity") && aliases.DefaultCapacity != 0 {
		return []int{aliases.DefaultCapacity}, nil
	}
	return []int{app.GetCapacity(cmd, replayCapacity)}, nil
}

// ParseCapacities parses a comma-separated capacity list such as "1,2,4".
// Values are returned in the order given; validity is left to the cache.
func ParseCapacities(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	capacities := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("invalid capacity list %q: empty entry", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid capacity %q in %q", p, s)
		}
		capacities = append(capacities, n)
	}
	return capacities, nil
}

// capacityError turns a cache construction failure into a suggestive error
// naming the first bad capacity.
func capacityError(capacities []int, err error) error {
	if !errors.Is(err, lru.ErrInvalidConfiguration) {
		return err
	}
	for _, c := range capacities {
		if c <= 0 {
			return clerrors.InvalidCapacityError(c, err)
		}
	}
	return err
}

// parseWindow parses --start/--end, reporting which bound was malformed.
func parseWindow(start, end string, now time.Time) (time.Time, time.Time, error) {
	for _, input := range []string{start, end} {
		if _, err := timeutil.ParseAt(input, now); err != nil {
			return time.Time{}, time.Time{}, clerrors.InvalidTimeError(input)
		}
	}
	return timeutil.Window(start, end, now)
}
