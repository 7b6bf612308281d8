// Package config handles loading, validating and saving the application
// configuration: repositories, filesystem locations and runtime settings.
// Configuration lives in a YAML file; missing files yield defaults rooted
// under the user home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Repositories []*RepositoryConfig `yaml:"repositories"`
	Settings     Settings            `yaml:"settings"`
}

// RepositoryConfig represents a single package repository.
type RepositoryConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Enabled  bool   `yaml:"enabled"`
	Priority uint   `yaml:"priority"`
}

// Settings represents general application settings.
type Settings struct {
	// InstallRoot is the directory packages are installed into.
	InstallRoot string `yaml:"install_root,omitempty"`

	// StateDir holds the state store, the transaction history and lock files.
	StateDir string `yaml:"state_dir,omitempty"`

	// CacheDir holds downloaded artifacts and synced index files.
	CacheDir string `yaml:"cache_dir,omitempty"`

	// StagingDir holds per-transaction staging trees. It must live on the
	// same device as InstallRoot for renames to stay atomic.
	StagingDir string `yaml:"staging_dir,omitempty"`

	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	LogLevel      string        `yaml:"log_level"`
}

// Default configuration values.
const (
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultMaxConcurrent = 4
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	base := "."
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".ferrite")
	}

	return &Config{
		Repositories: []*RepositoryConfig{},
		Settings: Settings{
			InstallRoot:   filepath.Join(base, "root"),
			StateDir:      filepath.Join(base, "state"),
			CacheDir:      filepath.Join(base, "cache"),
			StagingDir:    filepath.Join(base, "staging"),
			HTTPTimeout:   DefaultHTTPTimeout,
			MaxConcurrent: DefaultMaxConcurrent,
			LogLevel:      "info",
		},
	}
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ferrite.yaml"
	}
	return filepath.Join(home, ".ferrite", "config.yaml")
}

// LoadConfig loads configuration from a file. A missing file is not an
// error: defaults are returned so first runs need no setup.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidPath, "config path %s", path)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the configuration to a file, creating the directory if
// needed.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	return fsutil.WriteFileAtomic(path, data, fsutil.FileModeDefault)
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Repositories))
	for _, repo := range c.Repositories {
		if repo.Name == "" {
			return errors.Wrap(errors.ErrValidation, "repository with empty name")
		}
		if _, dup := seen[repo.Name]; dup {
			return errors.Wrapf(errors.ErrValidation, "duplicate repository %s", repo.Name)
		}
		seen[repo.Name] = struct{}{}
		if repo.Enabled && repo.URL == "" {
			return errors.Wrapf(errors.ErrValidation, "repository %s has no URL", repo.Name)
		}
	}
	if c.Settings.MaxConcurrent < 0 {
		return errors.Wrap(errors.ErrValidation, "max_concurrent cannot be negative")
	}
	return nil
}

// EnabledRepositories returns the repositories to consult, highest priority
// first, name as tie-break.
func (c *Config) EnabledRepositories() []*RepositoryConfig {
	out := make([]*RepositoryConfig, 0, len(c.Repositories))
	for _, repo := range c.Repositories {
		if repo.Enabled {
			out = append(out, repo)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// StatePath returns the location of the persisted state store.
func (c *Config) StatePath() string {
	return filepath.Join(c.Settings.StateDir, "state.json")
}

// IndexDir returns the directory synced index files are stored in.
func (c *Config) IndexDir() string {
	return filepath.Join(c.Settings.CacheDir, "indexes")
}

// ArtifactCacheDir returns the directory downloaded artifacts are kept in.
func (c *Config) ArtifactCacheDir() string {
	return filepath.Join(c.Settings.CacheDir, "artifacts")
}

// HistoryPath returns the location of the transaction audit log.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Settings.StateDir, "history.jsonl")
}

// String implements fmt.Stringer for debug logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{repos: %d, root: %s}", len(c.Repositories), c.Settings.InstallRoot)
}
