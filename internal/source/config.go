package source

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config represents the recency source alias file.
type Config struct {
	Sources         map[string]SourceAlias `yaml:"sources"`
	DefaultSource   string                 `yaml:"default_source,omitempty"`
	DefaultCapacity int                    `yaml:"default_capacity,omitempty"`
}

// SourceAlias defines a named trace source.
type SourceAlias struct {
	URI    string `yaml:"uri"`
	Format string `yaml:"format,omitempty"` // ops or keys
}

var (
	configPathMu       sync.RWMutex
	configPathOverride string
)

// SetConfigPath points LoadConfig and SaveConfig at path instead of the
// default location. An empty path restores the default.
func SetConfigPath(path string) {
	configPathMu.Lock()
	defer configPathMu.Unlock()
	configPathOverride = path
}

// ConfigPath returns the path to the alias config file.
func ConfigPath() string {
	configPathMu.RLock()
	override := configPathOverride
	configPathMu.RUnlock()
	if override != "" {
		return override
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".recency", "config.yaml")
}

// LoadConfig loads the alias config.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Sources: make(map[string]SourceAlias),
	}

	path := ConfigPath()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]SourceAlias)
	}

	return cfg, nil
}

// SaveConfig writes the alias config.
func SaveConfig(cfg *Config) error {
	path := ConfigPath()
	if path == "" {
		return os.ErrNotExist
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
