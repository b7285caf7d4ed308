package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmurray2011/recency/internal/trace"
)

// FormatResults outputs replay results in the configured format.
func (f *Formatter) FormatResults(results []*trace.Result) error {
	switch f.format {
	case FormatJSON:
		return f.formatJSON(results)
	case FormatCSV:
		return f.formatResultsCSV(results)
	case FormatYAML:
		return f.formatYAML(results)
	default:
		return f.formatResultsText(results)
	}
}

// FormatSteps outputs the per-op outcomes of a single replay.
func (f *Formatter) FormatSteps(steps []trace.Step) error {
	switch f.format {
	case FormatJSON:
		return f.formatJSON(steps)
	case FormatCSV:
		return f.formatStepsCSV(steps)
	case FormatYAML:
		return f.formatYAML(steps)
	default:
		return f.formatStepsText(steps)
	}
}

func (f *Formatter) formatResultsText(results []*trace.Result) error {
	if len(results) == 0 {
		f.renderer.NoResults()
		return nil
	}

	if len(results) == 1 {
		f.formatSummaryText(results[0])
		return nil
	}

	headers := []string{"CAPACITY", "OPS", "HITS", "MISSES", "EVICTIONS", "HIT RATIO"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			strconv.Itoa(r.Capacity),
			strconv.Itoa(r.Ops),
			strconv.FormatUint(r.Hits, 10),
			strconv.FormatUint(r.Misses, 10),
			strconv.FormatUint(r.Evictions, 10),
			formatRatio(r.HitRatio),
		})
	}
	f.renderer.Table(headers, rows)
	return nil
}

func (f *Formatter) formatSummaryText(r *trace.Result) {
	if r.Source != "" {
		f.renderer.KeyValue("Source", r.Source)
	}
	f.renderer.KeyValue("Capacity", strconv.Itoa(r.Capacity))
	f.renderer.KeyValue("Ops", fmt.Sprintf("%d (%d gets, %d puts)", r.Ops, r.Gets, r.Puts))
	f.renderer.KeyValue("Hits", strconv.FormatUint(r.Hits, 10))
	f.renderer.KeyValue("Misses", strconv.FormatUint(r.Misses, 10))
	f.renderer.KeyValue("Evictions", strconv.FormatUint(r.Evictions, 10))
	f.renderer.KeyValue("Hit ratio", formatRatio(r.HitRatio))
	f.renderer.Section("Final contents")
	f.renderer.Recency(r.Final)
}

func (f *Formatter) formatStepsText(steps []trace.Step) error {
	if len(steps) == 0 {
		f.renderer.NoResults()
		return nil
	}

	headers := []string{"#", "OP", "RESULT", "NOTE"}
	rows := make([][]string, 0, len(steps))
	for i, s := range steps {
		result := ""
		if s.Op.Kind != trace.KindPut {
			result = f.renderer.Outcome(s.Hit)
			if s.Hit && s.Op.Kind == trace.KindGet {
				result += " " + truncateMessage(s.Value, 40)
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			truncateMessage(s.Op.String(), 60),
			result,
			f.renderer.Evicted(s.Evicted),
		})
	}
	f.renderer.Table(headers, rows)
	return nil
}

func (f *Formatter) formatJSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (f *Formatter) formatYAML(v any) error {
	encoder := yaml.NewEncoder(f.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

func (f *Formatter) formatResultsCSV(results []*trace.Result) error {
	w := csv.NewWriter(f.writer)

	if err := w.Write([]string{"run_id", "source", "capacity", "ops", "gets", "puts", "hits", "misses", "evictions", "hit_ratio", "final"}); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.RunID,
			r.Source,
			strconv.Itoa(r.Capacity),
			strconv.Itoa(r.Ops),
			strconv.Itoa(r.Gets),
			strconv.Itoa(r.Puts),
			strconv.FormatUint(r.Hits, 10),
			strconv.FormatUint(r.Misses, 10),
			strconv.FormatUint(r.Evictions, 10),
			strconv.FormatFloat(r.HitRatio, 'f', 4, 64),
			strings.Join(r.Final, " "),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func (f *Formatter) formatStepsCSV(steps []trace.Step) error {
	w := csv.NewWriter(f.writer)

	if err := w.Write([]string{"step", "line", "kind", "key", "value", "hit", "evicted"}); err != nil {
		return err
	}

	for i, s := range steps {
		value := s.Op.Value
		if s.Op.Kind != trace.KindPut {
			value = s.Value
		}
		record := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(s.Op.Line),
			string(s.Op.Kind),
			s.Op.Key,
			value,
			strconv.FormatBool(s.Hit),
			s.Evicted,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatRatio(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
