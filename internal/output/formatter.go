// Package output renders replay results as text, JSON, CSV or YAML.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmurray2011/recency/internal/ui"
)

// Format specifies the output format type.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatText, FormatJSON, FormatCSV, FormatYAML}

// ParseFormat validates an output format name. An empty name means text.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatText, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (use text, json, csv or yaml)", s)
}

// Formatter handles output formatting for different formats.
type Formatter struct {
	format   Format
	writer   io.Writer
	renderer *ui.Renderer
}

// NewFormatter creates a new formatter with the specified format.
// Renderer options apply to text output.
func NewFormatter(format string, writer io.Writer, opts ...ui.Option) *Formatter {
	opts = append([]ui.Option{ui.WithOutput(writer)}, opts...)
	return &Formatter{
		format:   Format(format),
		writer:   writer,
		renderer: ui.NewRendererWithOptions(opts...),
	}
}

// truncateMessage truncates a message to maxLen characters.
func truncateMessage(msg string, maxLen int) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", "")
	if len(msg) > maxLen {
		return msg[:maxLen] + "..."
	}
	return msg
}
