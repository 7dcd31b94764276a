package abstraction

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// configDirName is the per-workspace directory holding the index database
// and optional configuration.
const configDirName = ".abstraction"

// Config is the optional per-workspace configuration loaded from
// .abstraction/config.yml. Zero values mean "use defaults".
type Config struct {
	// Languages restricts indexing to the named languages. Empty means all
	// supported languages.
	Languages []string `yaml:"languages"`
	// Ignore lists directory names skipped during filesystem walks, in
	// addition to the built-in skips (hidden dirs, node_modules, vendor).
	Ignore []string `yaml:"ignore"`
	// MaxFiles aborts an index run discovering more files than this. 0
	// disables the ceiling.
	MaxFiles int `yaml:"max_files"`
	// TimeoutSeconds aborts an index run outliving this many seconds. 0
	// disables the ceiling.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// HTTPAddr is the listen address for the serve command.
	HTTPAddr string `yaml:"http_addr"`
}

// LoadConfig reads .abstraction/config.yml under workspace. A missing file
// yields the zero config, not an error.
func LoadConfig(workspace string) (*Config, error) {
	path := filepath.Join(workspace, configDirName, "config.yml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Options returns the engine options the config implies.
func (c *Config) Options() []Option {
	var opts []Option
	if len(c.Languages) > 0 {
		opts = append(opts, WithLanguages(c.Languages...))
	}
	if len(c.Ignore) > 0 {
		opts = append(opts, WithIgnoreDirs(c.Ignore...))
	}
	if c.MaxFiles > 0 {
		opts = append(opts, WithFileLimit(c.MaxFiles))
	}
	if c.TimeoutSeconds > 0 {
		opts = append(opts, WithTimeout(time.Duration(c.TimeoutSeconds)*time.Second))
	}
	return opts
}
