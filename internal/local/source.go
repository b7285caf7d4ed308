// Package local implements trace sources backed by local files and stdin.
package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jmurray2011/recency/internal/logging"
	"github.com/jmurray2011/recency/internal/source"
	"github.com/jmurray2011/recency/internal/trace"
)

func init() {
	source.Register("file", openFileSource)
	source.Register("stdin", openStdinSource)
}

// Source implements source.Source for trace files on disk or a single
// reader such as stdin.
type Source struct {
	files  []string
	format trace.Format
	uri    string

	// Reader-backed sources can only be consumed once, so the parsed ops
	// are kept for later calls.
	reader   io.Reader
	readOnce sync.Once
	readOps  []trace.Op
	readErr  error

	log logging.Logger
}

// openFileSource opens a file source from a parsed URL.
func openFileSource(u *url.URL, opts source.OpenOptions) (source.Source, error) {
	pattern := u.Path
	if pattern == "" {
		return nil, fmt.Errorf("file:// URI requires a path")
	}

	// Expand ~ to home directory
	if strings.HasPrefix(pattern, "/~/") {
		if home, err := os.UserHomeDir(); err == nil {
			pattern = filepath.Join(home, pattern[3:])
		}
	}

	format := u.Query().Get("format")
	if format == "" {
		format = opts.Format
	}

	return NewSource(pattern, format)
}

// openStdinSource opens a source reading the trace from standard input.
func openStdinSource(u *url.URL, opts source.OpenOptions) (source.Source, error) {
	r := opts.Stdin
	if r == nil {
		r = os.Stdin
	}

	format := u.Query().Get("format")
	if format == "" {
		format = opts.Format
	}

	return NewReaderSource(r, format)
}

// NewSource creates a file source. The pattern can be a specific file path
// or a glob; matching files are read in lexical order.
func NewSource(pattern, format string) (*Source, error) {
	f, err := trace.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match pattern %q", pattern)
	}
	sort.Strings(files)

	return &Source{
		files:  files,
		format: f,
		uri:    "file://" + pattern,
		log:    logging.Default().WithField("source", "file"),
	}, nil
}

// NewReaderSource creates a source that parses r on first use.
func NewReaderSource(r io.Reader, format string) (*Source, error) {
	f, err := trace.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	return &Source{
		reader: r,
		format: f,
		uri:    "stdin://",
		log:    logging.Default().WithField("source", "stdin"),
	}, nil
}

// Ops returns the trace ops from every file in order. The time window in
// params is ignored; local traces carry no timestamps.
func (s *Source) Ops(ctx context.Context, params source.Params) ([]trace.Op, error) {
	if s.reader != nil {
		s.readOnce.Do(func() {
			s.readOps, s.readErr = trace.Read(s.reader, s.format)
			s.log.Debug("read %d ops", len(s.readOps))
		})
		if s.readErr != nil {
			return nil, fmt.Errorf("error reading stdin: %w", s.readErr)
		}
		return source.Truncate(s.readOps, params), nil
	}

	var ops []trace.Op
	for _, file := range s.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileOps, err := s.readFile(file)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", file, err)
		}
		s.log.Debug("read %d ops from %s", len(fileOps), file)
		ops = append(ops, fileOps...)

		if params.Limit > 0 && len(ops) >= params.Limit {
			break
		}
	}

	return source.Truncate(ops, params), nil
}

func (s *Source) readFile(path string) ([]trace.Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return trace.Read(f, s.format)
}

// Type returns "stdin" for reader sources and "file" otherwise.
func (s *Source) Type() string {
	if s.reader != nil {
		return "stdin"
	}
	return "file"
}

// Metadata returns source metadata.
func (s *Source) Metadata() source.Metadata {
	return source.Metadata{
		Type:   s.Type(),
		URI:    s.uri,
		Format: s.format,
	}
}

// Close releases resources. Files are opened per read, so there is nothing to do.
func (s *Source) Close() error {
	return nil
}

// Files returns the files this source reads, in order.
func (s *Source) Files() []string {
	return s.files
}
