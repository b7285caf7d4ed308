package source

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	clerrors "github.com/jmurray2011/recency/internal/errors"
)

// SourceOpener is a function that opens a source from a parsed URL.
type SourceOpener func(u *url.URL, opts OpenOptions) (Source, error)

// OpenOptions provides default values for source configuration.
// These can be overridden by URI query parameters.
type OpenOptions struct {
	Profile string    // Default AWS profile
	Region  string    // Default AWS region
	Format  string    // Default trace format when the URI has no ?format=
	Stdin   io.Reader // Reader behind stdin://; os.Stdin when nil
}

// registry holds registered source openers by scheme.
var registry = make(map[string]SourceOpener)

// Register adds a source opener for the given URI scheme.
// This should be called during init() by each source implementation.
func Register(scheme string, opener SourceOpener) {
	registry[scheme] = opener
}

// Open parses a URI and returns the appropriate Source.
func Open(uri string) (Source, error) {
	return OpenWithOptions(uri, OpenOptions{})
}

// OpenWithOptions parses a URI and returns the appropriate Source with default options.
// Supports:
//   - file:///path/to/trace (or bare paths like ./trace.txt, globs allowed)
//   - stdin:// (or "-")
//   - cloudwatch:///log-group
//   - @alias (resolved from config)
func OpenWithOptions(uri string, opts OpenOptions) (Source, error) {
	if uri == "-" {
		uri = "stdin://"
	}

	// Handle bare paths as file://
	if strings.HasPrefix(uri, "/") || strings.HasPrefix(uri, "./") || strings.HasPrefix(uri, "../") || strings.HasPrefix(uri, "~") {
		uri = "file://" + expandPath(uri)
	}

	if strings.HasPrefix(uri, "@") {
		return OpenAliasWithOptions(uri[1:], opts)
	}

	if err := validateURISyntax(uri); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid source URI %q: %w", uri, err)
	}

	opener, ok := registry[parsed.Scheme]
	if !ok {
		if parsed.Scheme == "" {
			return nil, fmt.Errorf("invalid source %q: use a path (./trace.txt), a URI (file:///trace.txt) or an @alias", uri)
		}
		return nil, fmt.Errorf("unknown source scheme: %s (available: %s)", parsed.Scheme, availableSchemes())
	}

	return opener(parsed, opts)
}

// validateURISyntax checks for common URI mistakes and returns helpful errors.
func validateURISyntax(uri string) error {
	// Pattern: scheme:///path@key=value (should be scheme:///path?key=value)
	if idx := strings.Index(uri, "://"); idx > 0 {
		rest := uri[idx+3:]
		if atIdx := strings.Index(rest, "@"); atIdx > 0 {
			afterAt := rest[atIdx+1:]
			if strings.Contains(afterAt, "=") && !strings.Contains(rest[:atIdx], "?") {
				return fmt.Errorf("invalid URI %q: use '?' for query parameters, not '@'", uri)
			}
		}
	}

	if strings.HasPrefix(uri, "///") {
		return fmt.Errorf("invalid URI %q: missing scheme (e.g., file:///trace.txt)", uri)
	}

	return nil
}

// OpenAlias resolves a config alias to a Source.
func OpenAlias(name string) (Source, error) {
	return OpenAliasWithOptions(name, OpenOptions{})
}

// OpenAliasWithOptions resolves a config alias to a Source with default options.
// The alias's format, if set, replaces opts.Format.
func OpenAliasWithOptions(name string, opts OpenOptions) (Source, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	alias, ok := cfg.Sources[name]
	if !ok {
		available := make([]string, 0, len(cfg.Sources))
		for k := range cfg.Sources {
			available = append(available, "@"+k)
		}
		sort.Strings(available)
		return nil, clerrors.SourceNotFoundError("@"+name, available)
	}

	if strings.HasPrefix(alias.URI, "@") {
		return nil, fmt.Errorf("alias @%s points at another alias (%s); aliases must name a path or URI", name, alias.URI)
	}

	if alias.Format != "" {
		opts.Format = alias.Format
	}
	return OpenWithOptions(alias.URI, opts)
}

func availableSchemes() string {
	schemes := make([]string, 0, len(registry))
	for s := range registry {
		schemes = append(schemes, s)
	}
	if len(schemes) == 0 {
		return "(none registered)"
	}
	sort.Strings(schemes)
	return strings.Join(schemes, ", ")
}

// expandPath resolves ~ to home directory and converts relative paths to absolute.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}
