package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
workings_base = "/tmp/workings"
minutes_dirs = ["/tmp/minutes"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/workings", cfg.WorkingsBase)
	assert.Equal(t, []string{"/tmp/minutes"}, cfg.MinutesDirs)
	assert.Equal(t, DefaultLookbackDays, cfg.LookbackDays)
	assert.Equal(t, DefaultStalenessThreshold, cfg.StalenessThreshold.Std())
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultModel, cfg.Model)
}

func TestLoadParsesDurationString(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
workings_base = "/tmp/workings"
staleness_threshold = "6h"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, cfg.StalenessThreshold.Std())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
workings_base = "/tmp/from-file"
`), 0o644))

	t.Setenv("MRC_WORKINGS_BASE", "/tmp/from-env")
	t.Setenv("MRC_CONCURRENCY", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env", cfg.WorkingsBase)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "workings_base", cfgErr.Field)

	cfg.WorkingsBase = "/tmp/workings"
	assert.NoError(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.toml")

	cfg := &Config{
		WorkingsBase: "/tmp/workings",
		MinutesDirs:  []string{"/tmp/a", "/tmp/b"},
		Exporters:    map[string]string{"notes": "notes-export --output /tmp/notes"},
	}
	cfg.applyDefaults()
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.WorkingsBase, loaded.WorkingsBase)
	assert.Equal(t, cfg.MinutesDirs, loaded.MinutesDirs)
	assert.Equal(t, cfg.Exporters, loaded.Exporters)
}
