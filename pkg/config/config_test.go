package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Repositories)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
	assert.Equal(t, DefaultMaxConcurrent, cfg.Settings.MaxConcurrent)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.True(t, errors.Is(err, errors.ErrEmptyConfigPath))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Repositories = []*RepositoryConfig{
		{Name: "main", URL: "https://pkgs.example.com/index.json", Enabled: true, Priority: 10},
	}
	cfg.Settings.HTTPTimeout = 5 * time.Second

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, loaded.Repositories, 1)
	assert.Equal(t, "main", loaded.Repositories[0].Name)
	assert.Equal(t, 5*time.Second, loaded.Settings.HTTPTimeout)
}

func TestLoadConfigParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := LoadConfig(path)
	assert.True(t, errors.Is(err, errors.ErrConfigParse))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}, wantErr: false},
		{
			name: "empty repo name",
			mutate: func(c *Config) {
				c.Repositories = append(c.Repositories, &RepositoryConfig{URL: "https://x"})
			},
			wantErr: true,
		},
		{
			name: "duplicate repo",
			mutate: func(c *Config) {
				c.Repositories = append(c.Repositories,
					&RepositoryConfig{Name: "a", URL: "https://x"},
					&RepositoryConfig{Name: "a", URL: "https://y"})
			},
			wantErr: true,
		},
		{
			name: "enabled repo without URL",
			mutate: func(c *Config) {
				c.Repositories = append(c.Repositories, &RepositoryConfig{Name: "a", Enabled: true})
			},
			wantErr: true,
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.Settings.MaxConcurrent = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnabledRepositoriesOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repositories = []*RepositoryConfig{
		{Name: "beta", URL: "https://b", Enabled: true, Priority: 5},
		{Name: "alpha", URL: "https://a", Enabled: true, Priority: 5},
		{Name: "main", URL: "https://m", Enabled: true, Priority: 10},
		{Name: "off", URL: "https://o", Enabled: false, Priority: 99},
	}

	got := cfg.EnabledRepositories()
	require.Len(t, got, 3)
	assert.Equal(t, "main", got[0].Name)
	assert.Equal(t, "alpha", got[1].Name)
	assert.Equal(t, "beta", got[2].Name)
}

func TestDerivedPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.StateDir = "/var/lib/ferrite"
	cfg.Settings.CacheDir = "/var/cache/ferrite"

	assert.Equal(t, filepath.Join("/var/lib/ferrite", "state.json"), cfg.StatePath())
	assert.Equal(t, filepath.Join("/var/lib/ferrite", "history.jsonl"), cfg.HistoryPath())
	assert.Equal(t, filepath.Join("/var/cache/ferrite", "indexes"), cfg.IndexDir())
	assert.Equal(t, filepath.Join("/var/cache/ferrite", "artifacts"), cfg.ArtifactCacheDir())
}
