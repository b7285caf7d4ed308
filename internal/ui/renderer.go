package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Renderer handles all terminal output with consistent styling.
type Renderer struct {
	out     io.Writer
	err     io.Writer
	noColor bool
	quiet   bool
}

// NewRenderer creates a new Renderer with default settings.
func NewRenderer() *Renderer {
	return &Renderer{
		out: os.Stdout,
		err: os.Stderr,
	}
}

// Option is a functional option for configuring the Renderer.
type Option func(*Renderer)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) {
		r.out = w
	}
}

// WithError sets the error writer.
func WithError(w io.Writer) Option {
	return func(r *Renderer) {
		r.err = w
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) Option {
	return func(r *Renderer) {
		r.noColor = noColor
	}
}

// WithQuiet enables quiet mode (suppresses status messages).
func WithQuiet(quiet bool) Option {
	return func(r *Renderer) {
		r.quiet = quiet
	}
}

// NewRendererWithOptions creates a new Renderer with the given options.
func NewRendererWithOptions(opts ...Option) *Renderer {
	r := NewRenderer()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Out returns the writer used for regular output.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// render applies styling if color is enabled.
func (r *Renderer) render(style lipgloss.Style, text string) string {
	if r.noColor {
		return text
	}
	return style.Render(text)
}

// --- Status and Messages ---

// Status prints a status message (suppressed in quiet mode).
func (r *Renderer) Status(format string, args ...any) {
	if r.quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(StatusStyle, msg))
}

// Info prints an informational message.
func (r *Renderer) Info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.out, msg)
}

// Success prints a success message.
func (r *Renderer) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.out, r.render(SuccessStyle, msg))
}

// Warning prints a warning message.
func (r *Renderer) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(WarningStyle, "Warning: "+msg))
}

// Error prints an error message.
func (r *Renderer) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(ErrorStyle, "Error: "+msg))
}

// Debug prints a debug message (only when verbose).
func (r *Renderer) Debug(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(MutedStyle, "[DEBUG] "+msg))
}

// --- Formatted Output ---

// KeyValue prints a key-value pair.
func (r *Renderer) KeyValue(key, value string) {
	label := r.render(LabelStyle, key+":")
	fmt.Fprintf(r.out, "%s %s\n", label, value)
}

// KeyValueIndent prints an indented key-value pair.
func (r *Renderer) KeyValueIndent(key, value string, indent int) {
	prefix := strings.Repeat("  ", indent)
	label := r.render(LabelStyle, key+":")
	fmt.Fprintf(r.out, "%s%s %s\n", prefix, label, value)
}

// Section prints a section title.
func (r *Renderer) Section(title string) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.render(SectionTitleStyle, title))
}

// Divider prints a horizontal divider.
func (r *Renderer) Divider() {
	fmt.Fprintln(r.out, r.render(MutedStyle, strings.Repeat("─", 40)))
}

// Newline prints a blank line.
func (r *Renderer) Newline() {
	fmt.Fprintln(r.out)
}

// --- Cache Rendering ---

// Outcome returns the styled label for a lookup result.
func (r *Renderer) Outcome(hit bool) string {
	if hit {
		return r.render(HitStyle, "HIT")
	}
	return r.render(MissStyle, "MISS")
}

// Evicted returns the styled note for an evicted key, or "" if none.
func (r *Renderer) Evicted(key string) string {
	if key == "" {
		return ""
	}
	return r.render(EvictStyle, "evicted "+key)
}

// Recency prints the cached keys from most to least recently used.
func (r *Renderer) Recency(keys []string) {
	if len(keys) == 0 {
		fmt.Fprintln(r.out, r.render(MutedStyle, "(empty)"))
		return
	}

	styled := make([]string, len(keys))
	for i, k := range keys {
		styled[i] = r.render(KeyStyle, k)
	}
	fmt.Fprintf(r.out, "%s %s %s\n",
		r.render(MutedStyle, "MRU"),
		strings.Join(styled, " "),
		r.render(MutedStyle, "LRU"))
}

// --- Table Rendering ---

// Table renders a simple table. Column widths are measured on the
// unstyled cell text so styled cells still line up.
func (r *Renderer) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	// Print header
	headerParts := make([]string, len(headers))
	for i, h := range headers {
		headerParts[i] = r.render(LabelStyle, pad(h, widths[i]))
	}
	fmt.Fprintln(r.out, strings.TrimRight(strings.Join(headerParts, "  "), " "))

	// Print separator
	sepParts := make([]string, len(headers))
	for i, w := range widths {
		sepParts[i] = strings.Repeat("-", w)
	}
	fmt.Fprintln(r.out, r.render(MutedStyle, strings.Join(sepParts, "  ")))

	// Print rows
	for _, row := range rows {
		rowParts := make([]string, len(headers))
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			rowParts[i] = pad(cell, widths[i])
		}
		fmt.Fprintln(r.out, strings.TrimRight(strings.Join(rowParts, "  "), " "))
	}
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// NoResults prints a "no results" message.
func (r *Renderer) NoResults() {
	fmt.Fprintln(r.out, r.render(MutedStyle, "No results found."))
}
