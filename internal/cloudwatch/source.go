package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/smithy-go"

	clerrors "github.com/jmurray2011/recency/internal/errors"
	"github.com/jmurray2011/recency/internal/logging"
	"github.com/jmurray2011/recency/internal/source"
	"github.com/jmurray2011/recency/internal/trace"
	"github.com/jmurray2011/recency/pkg/lru"
)

// Default configuration values
const (
	// DefaultDedupCapacity is how many event IDs are remembered to drop
	// events that appear on more than one page.
	DefaultDedupCapacity = 10000

	// DefaultPageLimit is the number of events requested per FilterLogEvents call.
	DefaultPageLimit = 10000
)

func init() {
	source.Register("cloudwatch", openSource)
}

// LogsAPI is the part of the CloudWatch Logs client the trace source uses.
type LogsAPI interface {
	cloudwatchlogs.FilterLogEventsAPIClient
}

// Config describes which log events make up a trace and how to read them.
type Config struct {
	LogGroup string
	Filter   string // CloudWatch filter pattern, applied server-side
	Match    string // regex; its first capture group (or whole match) is the op line or key
	Format   string // ops or keys
	Profile  string
	Region   string
	URI      string
}

// Source implements source.Source for traces recorded in CloudWatch Logs.
type Source struct {
	api    LogsAPI
	cfg    Config
	format trace.Format
	match  *regexp.Regexp
	log    logging.Logger
}

type logEvent struct {
	timestamp time.Time
	message   string
}

// openSource is the SourceOpener for the cloudwatch scheme:
//
//	cloudwatch:///log-group?profile=&region=&filter=&match=&format=
func openSource(u *url.URL, opts source.OpenOptions) (source.Source, error) {
	logGroup := u.Path
	if logGroup == "" {
		return nil, fmt.Errorf("cloudwatch URI requires a log group path")
	}

	q := u.Query()
	cfg := Config{
		LogGroup: logGroup,
		Filter:   q.Get("filter"),
		Match:    rawQueryValue(u.RawQuery, "match"),
		Format:   firstNonEmpty(q.Get("format"), opts.Format),
		Profile:  firstNonEmpty(q.Get("profile"), opts.Profile),
		Region:   firstNonEmpty(q.Get("region"), opts.Region),
		URI:      u.String(),
	}

	sess, err := LoadSession(context.Background(), cfg.Profile, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create CloudWatch Logs client: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = sess.Region()
		logging.Debug("Resolved AWS region %q for log group %s", cfg.Region, logGroup)
	}

	return NewSource(sess.Logs(), cfg)
}

// NewSource creates a CloudWatch trace source using api.
func NewSource(api LogsAPI, cfg Config) (*Source, error) {
	if cfg.LogGroup == "" {
		return nil, fmt.Errorf("cloudwatch source requires a log group")
	}

	format, err := trace.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	s := &Source{
		api:    api,
		cfg:    cfg,
		format: format,
		log:    logging.Default().WithFields(map[string]interface{}{"source": "cloudwatch", "log_group": cfg.LogGroup}),
	}

	if cfg.Match != "" {
		s.match, err = regexp.Compile(cfg.Match)
		if err != nil {
			return nil, fmt.Errorf("invalid match pattern %q: %w", cfg.Match, err)
		}
	}

	return s, nil
}

// Ops fetches every log event in the window, oldest first, and converts the
// messages to trace ops. Messages that do not match, or do not parse as an
// op, are skipped and counted in a warning.
func (s *Source) Ops(ctx context.Context, params source.Params) ([]trace.Op, error) {
	events, err := s.fetchEvents(ctx, params)
	if err != nil {
		return nil, err
	}

	ops := make([]trace.Op, 0, len(events))
	skipped := 0
	for i, e := range events {
		op, ok := s.toOp(e.message, i+1)
		if !ok {
			skipped++
			continue
		}
		ops = append(ops, op)
		if params.Limit > 0 && len(ops) >= params.Limit {
			break
		}
	}

	if skipped > 0 {
		s.log.Warn("skipped %d of %d events that did not contain a trace op", skipped, len(events))
	}
	return ops, nil
}

func (s *Source) fetchEvents(ctx context.Context, params source.Params) ([]logEvent, error) {
	input := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(s.cfg.LogGroup),
		Limit:        aws.Int32(DefaultPageLimit),
	}
	if !params.StartTime.IsZero() {
		input.StartTime = aws.Int64(params.StartTime.UnixMilli())
	}
	if !params.EndTime.IsZero() {
		input.EndTime = aws.Int64(params.EndTime.UnixMilli())
	}
	if s.cfg.Filter != "" {
		input.FilterPattern = aws.String(s.cfg.Filter)
	}

	seen, err := lru.New[string, struct{}](DefaultDedupCapacity)
	if err != nil {
		return nil, err
	}

	var events []logEvent
	duplicates, pages := 0, 0

	paginator := cloudwatchlogs.NewFilterLogEventsPaginator(s.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.wrapError(err)
		}
		pages++

		for _, e := range page.Events {
			if e.Timestamp == nil || e.Message == nil {
				continue
			}

			id := aws.ToString(e.EventId)
			if id == "" {
				id = fmt.Sprintf("%d:%s:%s", *e.Timestamp, aws.ToString(e.LogStreamName), *e.Message)
			}
			if seen.Contains(id) {
				duplicates++
				continue
			}
			seen.Put(id, struct{}{})

			events = append(events, logEvent{
				timestamp: time.UnixMilli(*e.Timestamp),
				message:   *e.Message,
			})
		}
	}

	// Events interleave across streams; replay order is event time
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].timestamp.Before(events[j].timestamp)
	})

	s.log.Debug("fetched %d events in %d pages (%d duplicates dropped)", len(events), pages, duplicates)
	return events, nil
}

// toOp extracts an op from a log message.
func (s *Source) toOp(message string, lineNo int) (trace.Op, bool) {
	text := strings.TrimSpace(message)
	if s.match != nil {
		m := s.match.FindStringSubmatch(text)
		if m == nil {
			return trace.Op{}, false
		}
		text = m[0]
		if len(m) > 1 {
			text = m[1]
		}
		text = strings.TrimSpace(text)
	}

	if s.format == trace.FormatKeys {
		if text == "" {
			return trace.Op{}, false
		}
		return trace.Op{Kind: trace.KindAccess, Key: text, Line: lineNo}, true
	}

	op, ok, err := trace.ParseLine(text, lineNo)
	if err != nil || !ok {
		return trace.Op{}, false
	}
	return op, true
}

func (s *Source) wrapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
		return clerrors.LogGroupNotFoundError(s.cfg.LogGroup, err)
	}
	return fmt.Errorf("failed to filter log events: %w", err)
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "cloudwatch"
}

// Metadata returns source metadata.
func (s *Source) Metadata() source.Metadata {
	uri := s.cfg.URI
	if uri == "" {
		uri = "cloudwatch://" + s.cfg.LogGroup
	}
	return source.Metadata{
		Type:    "cloudwatch",
		URI:     uri,
		Format:  s.format,
		Profile: s.cfg.Profile,
		Region:  s.cfg.Region,
	}
}

// Close releases resources. The SDK client holds none that need closing.
func (s *Source) Close() error {
	return nil
}

// rawQueryValue returns the first value for key without form decoding, so a
// '+' in a regex stays a '+'.
func rawQueryValue(rawQuery, key string) string {
	for _, part := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(part, "=")
		if k != key {
			continue
		}
		if unescaped, err := url.PathUnescape(v); err == nil {
			return unescaped
		}
		return v
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
