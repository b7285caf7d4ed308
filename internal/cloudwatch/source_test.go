package cloudwatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"

	clerrors "github.com/jmurray2011/recency/internal/errors"
	"github.com/jmurray2011/recency/internal/source"
	"github.com/jmurray2011/recency/internal/trace"
)

// mockLogsClient serves canned pages keyed by the request's next token.
type mockLogsClient struct {
	pages  map[string]*cloudwatchlogs.FilterLogEventsOutput
	err    error
	inputs []*cloudwatchlogs.FilterLogEventsInput
}

func (m *mockLogsClient) FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	page, ok := m.pages[aws.ToString(params.NextToken)]
	if !ok {
		return &cloudwatchlogs.FilterLogEventsOutput{}, nil
	}
	return page, nil
}

func event(id string, ts int64, msg string) types.FilteredLogEvent {
	return types.FilteredLogEvent{
		EventId:       aws.String(id),
		Timestamp:     aws.Int64(ts),
		Message:       aws.String(msg),
		LogStreamName: aws.String("stream-1"),
	}
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{LogGroup: "/app/cache"}, false},
		{"missing log group", Config{}, true},
		{"bad format", Config{LogGroup: "/app/cache", Format: "csv"}, true},
		{"bad match", Config{LogGroup: "/app/cache", Match: "("}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSource(&mockLogsClient{}, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSource() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSource_OpsPaginatesAndSorts(t *testing.T) {
	client := &mockLogsClient{
		pages: map[string]*cloudwatchlogs.FilterLogEventsOutput{
			"": {
				Events: []types.FilteredLogEvent{
					event("e2", 2000, "get a"),
					event("e1", 1000, "put a 1"),
				},
				NextToken: aws.String("page2"),
			},
			"page2": {
				Events: []types.FilteredLogEvent{
					event("e2", 2000, "get a"), // repeated across pages
					event("e3", 3000, "get b"),
					event("e4", 4000, "not an op at all"),
				},
			},
		},
	}

	src, err := NewSource(client, Config{LogGroup: "/app/cache", Filter: `"get" || "put"`})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	start := time.UnixMilli(500)
	ops, err := src.Ops(context.Background(), source.Params{StartTime: start})
	if err != nil {
		t.Fatalf("Ops() error = %v", err)
	}

	want := []string{"put a 1", "get a", "get b"}
	if len(ops) != len(want) {
		t.Fatalf("Ops() returned %v, want %v", ops, want)
	}
	for i, w := range want {
		if ops[i].String() != w {
			t.Errorf("ops[%d] = %q, want %q", i, ops[i], w)
		}
	}

	first := client.inputs[0]
	if aws.ToString(first.LogGroupName) != "/app/cache" {
		t.Errorf("LogGroupName = %q", aws.ToString(first.LogGroupName))
	}
	if aws.ToString(first.FilterPattern) != `"get" || "put"` {
		t.Errorf("FilterPattern = %q", aws.ToString(first.FilterPattern))
	}
	if aws.ToInt64(first.StartTime) != 500 {
		t.Errorf("StartTime = %d, want 500", aws.ToInt64(first.StartTime))
	}
	if first.EndTime != nil {
		t.Errorf("EndTime should be unset, got %d", aws.ToInt64(first.EndTime))
	}
}

func TestSource_OpsMatchAndKeys(t *testing.T) {
	client := &mockLogsClient{
		pages: map[string]*cloudwatchlogs.FilterLogEventsOutput{
			"": {
				Events: []types.FilteredLogEvent{
					event("e1", 1000, `level=info path=/index.html status=200`),
					event("e2", 2000, `level=info path=/about status=200`),
					event("e3", 3000, `level=debug healthcheck`),
				},
			},
		},
	}

	src, err := NewSource(client, Config{
		LogGroup: "/web/access",
		Match:    `path=(\S+)`,
		Format:   "keys",
	})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	ops, err := src.Ops(context.Background(), source.Params{})
	if err != nil {
		t.Fatalf("Ops() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("Ops() returned %d ops, want 2: %v", len(ops), ops)
	}
	if ops[0].Kind != trace.KindAccess || ops[0].Key != "/index.html" || ops[1].Key != "/about" {
		t.Errorf("Ops() = %+v", ops)
	}
	if ops[1].Line != 2 {
		t.Errorf("ops[1].Line = %d, want 2", ops[1].Line)
	}
}

func TestSource_OpsLimit(t *testing.T) {
	client := &mockLogsClient{
		pages: map[string]*cloudwatchlogs.FilterLogEventsOutput{
			"": {
				Events: []types.FilteredLogEvent{
					event("e1", 1000, "get a"),
					event("e2", 2000, "get b"),
					event("e3", 3000, "get c"),
				},
			},
		},
	}

	src, err := NewSource(client, Config{LogGroup: "/app/cache"})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	ops, err := src.Ops(context.Background(), source.Params{Limit: 2})
	if err != nil {
		t.Fatalf("Ops() error = %v", err)
	}
	if len(ops) != 2 {
		t.Errorf("Ops(limit 2) returned %d ops", len(ops))
	}
}

func TestSource_OpsLogGroupNotFound(t *testing.T) {
	client := &mockLogsClient{
		err: &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "The specified log group does not exist."},
	}

	src, err := NewSource(client, Config{LogGroup: "/app/missing"})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	_, err = src.Ops(context.Background(), source.Params{})
	var se *clerrors.SuggestiveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SuggestiveError, got %v", err)
	}
	if !strings.Contains(se.Message, "/app/missing") {
		t.Errorf("Message = %q, want log group name", se.Message)
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		t.Error("underlying API error should stay reachable")
	}
}

func TestSource_OpsOtherError(t *testing.T) {
	client := &mockLogsClient{err: errors.New("throttled")}

	src, err := NewSource(client, Config{LogGroup: "/app/cache"})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	_, err = src.Ops(context.Background(), source.Params{})
	if err == nil || !strings.Contains(err.Error(), "failed to filter log events") {
		t.Errorf("Ops() error = %v", err)
	}
}

func TestSource_Metadata(t *testing.T) {
	src, err := NewSource(&mockLogsClient{}, Config{LogGroup: "/app/cache", Profile: "prod", Region: "us-west-2"})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	meta := src.Metadata()
	if meta.Type != "cloudwatch" || meta.URI != "cloudwatch:///app/cache" {
		t.Errorf("Metadata() = %+v", meta)
	}
	if meta.Profile != "prod" || meta.Region != "us-west-2" || meta.Format != trace.FormatOps {
		t.Errorf("Metadata() = %+v", meta)
	}
	if src.Type() != "cloudwatch" {
		t.Errorf("Type() = %q", src.Type())
	}
}

func TestRawQueryValue(t *testing.T) {
	tests := []struct {
		raw  string
		key  string
		want string
	}{
		{`match=path=(\S+)&format=keys`, "match", `path=(\S+)`},
		{`format=keys&match=%5Ba-z%5D%2B`, "match", "[a-z]+"},
		{`format=keys`, "match", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := rawQueryValue(tt.raw, tt.key); got != tt.want {
				t.Errorf("rawQueryValue(%q, %q) = %q, want %q", tt.raw, tt.key, got, tt.want)
			}
		})
	}
}
