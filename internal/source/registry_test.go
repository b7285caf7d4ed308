package source

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	clerrors "github.com/jmurray2011/recency/internal/errors"
	"github.com/jmurray2011/recency/internal/trace"
)

// fakeSource records how it was opened.
type fakeSource struct {
	u    *url.URL
	opts OpenOptions
}

func (f *fakeSource) Ops(ctx context.Context, params Params) ([]trace.Op, error) {
	return nil, nil
}
func (f *fakeSource) Type() string       { return f.u.Scheme }
func (f *fakeSource) Metadata() Metadata { return Metadata{Type: f.u.Scheme, URI: f.u.String()} }
func (f *fakeSource) Close() error       { return nil }

func registerFake(t *testing.T, schemes ...string) {
	t.Helper()
	for _, scheme := range schemes {
		Register(scheme, func(u *url.URL, opts OpenOptions) (Source, error) {
			return &fakeSource{u: u, opts: opts}, nil
		})
	}
	t.Cleanup(func() {
		for _, scheme := range schemes {
			delete(registry, scheme)
		}
	})
}

func writeAliasConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	SetConfigPath(path)
	t.Cleanup(func() { SetConfigPath("") })
}

func TestValidateURISyntax(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
		errMsg  string
	}{
		{"valid cloudwatch URI", "cloudwatch:///cache/trace?profile=prod&region=us-east-1", false, ""},
		{"valid file URI", "file:///var/traces/a.txt", false, ""},
		{"@ instead of ? for query params", "cloudwatch:///cache/trace@profile=prod", true, "use '?' for query parameters, not '@'"},
		{"missing scheme with triple slash", "///cache/trace?profile=prod", true, "missing scheme"},
		{"email-like @ in authority is allowed", "ssh://user@host/path", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateURISyntax(tt.uri)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("validateURISyntax(%q) error = %v, want error containing %q", tt.uri, err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("validateURISyntax(%q) = %v, want nil", tt.uri, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("could not get home dir: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get cwd: %v", err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"~", home},
		{"~/traces/a.txt", filepath.Join(home, "traces/a.txt")},
		{"./a.txt", filepath.Join(cwd, "a.txt")},
		{"../a.txt", filepath.Join(filepath.Dir(cwd), "a.txt")},
		{"/var/traces/a.txt", "/var/traces/a.txt"},
		{"~/traces/*.txt", filepath.Join(home, "traces/*.txt")},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := expandPath(tt.path); got != tt.want {
				t.Errorf("expandPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestOpenWithOptions_Schemes(t *testing.T) {
	registerFake(t, "file", "stdin", "cloudwatch")

	tests := []struct {
		uri        string
		wantScheme string
		wantPath   string
	}{
		{"-", "stdin", ""},
		{"stdin://", "stdin", ""},
		{"/tmp/trace.txt", "file", "/tmp/trace.txt"},
		{"file:///tmp/trace.txt?format=keys", "file", "/tmp/trace.txt"},
		{"cloudwatch:///app/cache", "cloudwatch", "/app/cache"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			src, err := OpenWithOptions(tt.uri, OpenOptions{Region: "eu-west-1"})
			if err != nil {
				t.Fatalf("OpenWithOptions(%q) error = %v", tt.uri, err)
			}
			f := src.(*fakeSource)
			if f.u.Scheme != tt.wantScheme {
				t.Errorf("scheme = %q, want %q", f.u.Scheme, tt.wantScheme)
			}
			if f.u.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", f.u.Path, tt.wantPath)
			}
			if f.opts.Region != "eu-west-1" {
				t.Errorf("options not passed through: %+v", f.opts)
			}
		})
	}
}

func TestOpenWithOptions_UnknownScheme(t *testing.T) {
	registerFake(t, "file")

	_, err := Open("redis://localhost/0")
	if err == nil || !strings.Contains(err.Error(), "unknown source scheme: redis") {
		t.Errorf("Open() error = %v, want unknown scheme", err)
	}
	if !strings.Contains(err.Error(), "file") {
		t.Errorf("error should list available schemes: %v", err)
	}

	_, err = Open("trace.txt")
	if err == nil || !strings.Contains(err.Error(), "use a path") {
		t.Errorf("Open(bare name) error = %v, want path hint", err)
	}
}

func TestOpenAlias(t *testing.T) {
	registerFake(t, "file", "cloudwatch")
	writeAliasConfig(t, `sources:
  prod-trace:
    uri: cloudwatch:///app/cache?region=us-east-1
  keys:
    uri: file:///tmp/keys.txt
    format: keys
  loop:
    uri: "@prod-trace"
default_source: prod-trace
`)

	src, err := Open("@keys")
	if err != nil {
		t.Fatalf("Open(@keys) error = %v", err)
	}
	f := src.(*fakeSource)
	if f.u.Path != "/tmp/keys.txt" || f.opts.Format != "keys" {
		t.Errorf("alias resolved to %s with format %q", f.u, f.opts.Format)
	}

	if _, err := Open("@loop"); err == nil {
		t.Error("expected error for alias pointing at alias")
	}

	_, err = Open("@prod-traces")
	var se *clerrors.SuggestiveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SuggestiveError, got %v", err)
	}
	if len(se.Suggestions) == 0 || se.Suggestions[0] != "@prod-trace" {
		t.Errorf("Suggestions = %v, want @prod-trace first", se.Suggestions)
	}
}

func TestLoadConfig(t *testing.T) {
	SetConfigPath(filepath.Join(t.TempDir(), "missing.yaml"))
	t.Cleanup(func() { SetConfigPath("") })

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() on missing file error = %v", err)
	}
	if cfg.Sources == nil || len(cfg.Sources) != 0 {
		t.Errorf("expected empty source map, got %v", cfg.Sources)
	}

	cfg.Sources["nightly"] = SourceAlias{URI: "file:///var/traces/nightly.txt"}
	cfg.DefaultCapacity = 512
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.DefaultCapacity != 512 || loaded.Sources["nightly"].URI != "file:///var/traces/nightly.txt" {
		t.Errorf("LoadConfig() = %+v", loaded)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	writeAliasConfig(t, "sources: [not, a, map]\n")
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestTruncate(t *testing.T) {
	ops := []trace.Op{{Key: "a"}, {Key: "b"}, {Key: "c"}}

	if got := Truncate(ops, Params{Limit: 2}); len(got) != 2 {
		t.Errorf("Truncate(limit 2) returned %d ops", len(got))
	}
	if got := Truncate(ops, Params{}); len(got) != 3 {
		t.Errorf("Truncate(no limit) returned %d ops", len(got))
	}
}
