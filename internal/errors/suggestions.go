// Package errors provides enhanced error messages with suggestions.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// SuggestiveError is an error that includes suggestions for fixing the problem.
type SuggestiveError struct {
	Message     string
	Suggestions []string
	HelpCommand string
	Err         error // underlying cause, if any
}

func (e *SuggestiveError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, s := range e.Suggestions {
			b.WriteString("  ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	if e.HelpCommand != "" {
		b.WriteString("\nRun '")
		b.WriteString(e.HelpCommand)
		b.WriteString("' for more information.")
	}

	return b.String()
}

func (e *SuggestiveError) Unwrap() error {
	return e.Err
}

// SourceNotFoundError creates an error for when a source alias isn't found.
func SourceNotFoundError(alias string, available []string) error {
	return &SuggestiveError{
		Message:     fmt.Sprintf("source %q not found", alias),
		Suggestions: findSimilar(alias, available, 3),
		HelpCommand: "recency sources",
	}
}

// InvalidCapacityError wraps a cache construction failure for a
// user-supplied capacity.
func InvalidCapacityError(capacity int, cause error) error {
	return &SuggestiveError{
		Message: fmt.Sprintf("invalid capacity %d: a cache must hold at least one entry", capacity),
		Suggestions: []string{
			"--capacity 128              - Single cache of 128 entries",
			"--sweep 16,64,256           - Compare several capacities",
			"capacity: 128 in ~/.recency.yaml",
		},
		Err: cause,
	}
}

// UnknownOpError reports a trace line whose verb is not recognised.
func UnknownOpError(line int, verb string, known []string) error {
	similar := findSimilar(verb, known, 2)
	if len(similar) == 0 {
		similar = known
	}
	return &SuggestiveError{
		Message:     fmt.Sprintf("line %d: unknown operation %q", line, verb),
		Suggestions: similar,
	}
}

// InvalidTimeError creates an error for an unparseable trace window bound.
func InvalidTimeError(input string) error {
	return &SuggestiveError{
		Message: fmt.Sprintf("invalid time format %q", input),
		Suggestions: []string{
			"Relative: 30s, 15m, 2h, 7d (ago)",
			"Absolute: 2024-01-15T10:30:00Z (RFC3339)",
			"now",
		},
	}
}

// LogGroupNotFoundError is returned when CloudWatch does not know the
// requested log group.
func LogGroupNotFoundError(group string, cause error) error {
	return &SuggestiveError{
		Message: fmt.Sprintf("log group %q not found", group),
		Suggestions: []string{
			"Check the log group name and the region (-r) it lives in",
			"aws logs describe-log-groups --log-group-name-prefix " + group,
		},
		Err: cause,
	}
}

// findSimilar finds strings similar to target using Levenshtein distance.
func findSimilar(target string, candidates []string, maxDistance int) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	targetLower := strings.ToLower(target)

	for _, c := range candidates {
		d := levenshtein(targetLower, strings.ToLower(c))
		if d <= maxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}

	// Closest first; ties alphabetically so output is stable
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	var result []string
	for i := 0; i < len(matches) && i < 3; i++ {
		result = append(result, matches[i].value)
	}

	return result
}

// levenshtein calculates the Levenshtein distance between two strings
// using two rolling rows.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
