// Package trace models cache access traces and replays them through
// lru caches.
//
// A trace in the "ops" format is one operation per line:
//
//	# comment
//	put user:1 alice
//	get user:1
//	access user:2
//
// "access" is a read-through: a get that falls back to put on a miss. The
// "keys" format treats every non-empty line as an access of that key.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	clerrors "github.com/jmurray2011/recency/internal/errors"
)

// MaxScanTokenSize is the longest trace line accepted (1MB).
const MaxScanTokenSize = 1024 * 1024

// Kind is the operation a trace line performs.
type Kind string

const (
	KindGet    Kind = "get"
	KindPut    Kind = "put"
	KindAccess Kind = "access"
)

// Format names a trace encoding.
type Format string

const (
	FormatOps  Format = "ops"
	FormatKeys Format = "keys"
)

var knownVerbs = []string{string(KindGet), string(KindPut), string(KindAccess)}

// Op is one cache operation read from a trace.
type Op struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Line  int    `json:"line,omitempty" yaml:"line,omitempty"` // 1-based position in the source, 0 if unknown
}

func (o Op) String() string {
	if o.Kind == KindPut {
		return fmt.Sprintf("%s %s %s", o.Kind, o.Key, o.Value)
	}
	return fmt.Sprintf("%s %s", o.Kind, o.Key)
}

// ParseFormat validates a format name; "" selects FormatOps.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatOps:
		return FormatOps, nil
	case FormatKeys:
		return FormatKeys, nil
	default:
		return "", fmt.Errorf("unknown trace format %q (use ops or keys)", s)
	}
}

// ParseLine parses a single "ops" line. Blank lines and comments return
// ok=false with no error.
func ParseLine(line string, lineNo int) (op Op, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Op{}, false, nil
	}

	fields := strings.Fields(line)
	verb := strings.ToLower(fields[0])

	switch Kind(verb) {
	case KindGet, KindAccess:
		if len(fields) != 2 {
			return Op{}, false, fmt.Errorf("line %d: %s takes exactly one key", lineNo, verb)
		}
		return Op{Kind: Kind(verb), Key: fields[1], Line: lineNo}, true, nil

	case KindPut:
		if len(fields) < 3 {
			return Op{}, false, fmt.Errorf("line %d: put takes a key and a value", lineNo)
		}
		// The value is everything after the key, inner spacing preserved
		rest := strings.TrimSpace(line[len(fields[0]):])
		value := strings.TrimSpace(rest[len(fields[1]):])
		return Op{Kind: KindPut, Key: fields[1], Value: value, Line: lineNo}, true, nil

	default:
		return Op{}, false, clerrors.UnknownOpError(lineNo, fields[0], knownVerbs)
	}
}

// Read parses r in the given format.
func Read(r io.Reader, format Format) ([]Op, error) {
	switch format {
	case FormatKeys:
		return ParseKeys(r)
	case FormatOps, "":
		return Parse(r)
	default:
		return nil, fmt.Errorf("unknown trace format %q", format)
	}
}

// Parse reads an "ops" trace.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	err := scanLines(r, func(line string, lineNo int) error {
		op, ok, err := ParseLine(line, lineNo)
		if err != nil {
			return err
		}
		if ok {
			ops = append(ops, op)
		}
		return nil
	})
	return ops, err
}

// ParseKeys reads a "keys" trace.
func ParseKeys(r io.Reader) ([]Op, error) {
	var ops []Op
	err := scanLines(r, func(line string, lineNo int) error {
		if key := strings.TrimSpace(line); key != "" {
			ops = append(ops, Op{Kind: KindAccess, Key: key, Line: lineNo})
		}
		return nil
	})
	return ops, err
}

func scanLines(r io.Reader, fn func(line string, lineNo int) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxScanTokenSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := fn(scanner.Text(), lineNo); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	return nil
}
