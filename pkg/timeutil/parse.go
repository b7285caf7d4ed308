// Package timeutil parses the time bounds used to select trace windows.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var relativeTimeRe = regexp.MustCompile(`^(\d+)([smhdw])$`)

// Parse parses a time string relative to the current time.
// See ParseAt for the accepted forms.
func Parse(input string) (time.Time, error) {
	return ParseAt(input, time.Now().UTC())
}

// ParseAt parses input as either RFC3339 or a relative offset into the past
// from now:
//   - "" or "now" -> now
//   - "45s", "30m", "2h", "7d", "1w" -> that long before now
//   - "2025-12-02T06:00:00Z" -> that instant
func ParseAt(input string, now time.Time) (time.Time, error) {
	if input == "" || input == "now" {
		return now, nil
	}

	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}

	matches := relativeTimeRe.FindStringSubmatch(input)
	if matches == nil {
		return time.Time{}, fmt.Errorf("invalid time format: %s - use RFC3339 (2025-12-02T06:00:00Z) or relative (30s, 15m, 2h, 7d, 1w)", input)
	}

	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time offset %q: %w", input, err)
	}

	var unit time.Duration
	switch matches[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	}
	return now.Add(-time.Duration(value) * unit), nil
}

// Window parses a start/end pair against the same instant and rejects
// ranges that end before they start.
func Window(start, end string, now time.Time) (time.Time, time.Time, error) {
	s, err := ParseAt(start, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseAt(end, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("end time %s is before start time %s", e.Format(time.RFC3339), s.Format(time.RFC3339))
	}
	return s, e, nil
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	}
}

// ValidateTimeRange returns human-readable warnings for windows that are
// likely mistakes. It never blocks the operation.
func ValidateTimeRange(start, end, now time.Time) []string {
	var warnings []string

	if start.After(now.Add(time.Minute)) {
		warnings = append(warnings, "start time is in the future - the trace will be empty")
	}

	duration := end.Sub(start)
	if duration > 7*24*time.Hour {
		warnings = append(warnings, fmt.Sprintf("reading %s of events - large traces take a while to fetch", FormatDuration(duration)))
	}

	return warnings
}
