package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jmurray2011/recency/internal/trace"
	"github.com/jmurray2011/recency/internal/ui"
)

func scenarioResult(t *testing.T) *trace.Result {
	t.Helper()
	ops, err := trace.Parse(strings.NewReader("put 1 1\nput 2 2\nput 3 3\nget 1\nput 4 4\nget 2\nput 5 5\nget 3\nget 4\nget 5\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	r, err := trace.Replay(ops, 3, trace.Options{Source: "demo", RecordSteps: true})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	return r
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		format string
		want   Format
	}{
		{"text", FormatText},
		{"json", FormatJSON},
		{"csv", FormatCSV},
		{"yaml", FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f := NewFormatter(tt.format, &buf)
			if f.format != tt.want {
				t.Errorf("NewFormatter(%q).format = %v, want %v", tt.format, f.format, tt.want)
			}
		})
	}
}

func TestFormatResults_TextSummary(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("text", &buf, ui.WithNoColor(true))

	if err := f.FormatResults([]*trace.Result{scenarioResult(t)}); err != nil {
		t.Fatalf("FormatResults() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Capacity: 3", "Hits: 3", "Misses: 2", "Evictions: 2", "Hit ratio: 60.0%", "MRU 5 4 1 LRU"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestFormatResults_TextTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("text", &buf, ui.WithNoColor(true))

	results := []*trace.Result{
		{Capacity: 1, Ops: 10, Hits: 0, Misses: 5, HitRatio: 0},
		{Capacity: 4, Ops: 10, Hits: 4, Misses: 1, HitRatio: 0.8},
	}
	if err := f.FormatResults(results); err != nil {
		t.Fatalf("FormatResults() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "CAPACITY") || !strings.Contains(output, "80.0%") {
		t.Errorf("unexpected table output:\n%s", output)
	}
	if lines := strings.Count(output, "\n"); lines != 4 {
		t.Errorf("expected header, separator and 2 rows, got %d lines", lines)
	}
}

func TestFormatResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("text", &buf, ui.WithNoColor(true))

	if err := f.FormatResults(nil); err != nil {
		t.Fatalf("FormatResults() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("json", &buf)

	r := scenarioResult(t)
	r.Steps = nil
	if err := f.FormatResults([]*trace.Result{r}); err != nil {
		t.Fatalf("FormatResults() error = %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded) != 1 || decoded[0]["hit_ratio"] != 0.6 || decoded[0]["capacity"] != float64(3) {
		t.Errorf("decoded = %v", decoded)
	}
	if _, ok := decoded[0]["steps"]; ok {
		t.Error("steps should be omitted when empty")
	}
}

func TestFormatResults_YAML(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("yaml", &buf)

	if err := f.FormatResults([]*trace.Result{{Capacity: 3, Hits: 1, Final: []string{"a"}}}); err != nil {
		t.Fatalf("FormatResults() error = %v", err)
	}

	var decoded []trace.Result
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, buf.String())
	}
	if len(decoded) != 1 || decoded[0].Capacity != 3 || decoded[0].Final[0] != "a" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestFormatResults_CSV(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("csv", &buf)

	if err := f.FormatResults([]*trace.Result{scenarioResult(t)}); err != nil {
		t.Fatalf("FormatResults() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and 1 row, got %d records", len(records))
	}
	if records[0][2] != "capacity" || records[1][2] != "3" || records[1][9] != "0.6000" || records[1][10] != "5 4 1" {
		t.Errorf("records = %v", records)
	}
}

func TestFormatSteps_Text(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("text", &buf, ui.WithNoColor(true))

	if err := f.FormatSteps(scenarioResult(t).Steps); err != nil {
		t.Fatalf("FormatSteps() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"get 1", "HIT 1", "MISS", "evicted 2", "evicted 3"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestFormatSteps_CSV(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("csv", &buf)

	if err := f.FormatSteps(scenarioResult(t).Steps); err != nil {
		t.Fatalf("FormatSteps() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 11 {
		t.Fatalf("expected header and 10 rows, got %d", len(records))
	}
	// step 5 is "put 4 4", which evicts key 2
	if records[5][2] != "put" || records[5][6] != "2" {
		t.Errorf("step 5 = %v", records[5])
	}
	// step 4 is "get 1", a hit returning 1
	if records[4][4] != "1" || records[4][5] != "true" {
		t.Errorf("step 4 = %v", records[4])
	}
}

func TestTruncateMessage(t *testing.T) {
	if got := truncateMessage("a\nb", 10); got != "a b" {
		t.Errorf("truncateMessage() = %q", got)
	}
	if got := truncateMessage("abcdef", 3); got != "abc..." {
		t.Errorf("truncateMessage() = %q", got)
	}
}
