// Package config loads pipeline configuration from a TOML file with
// environment overrides, and threads it through the run as an explicit value.
// Library packages never read configuration from ambient state.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const ConfigFileName = "config.toml"

// Defaults applied when the config file omits a value.
const (
	DefaultLookbackDays       = 60
	DefaultStalenessThreshold = 24 * time.Hour
	DefaultConcurrency        = 4
	DefaultMaxMinutesFileKB   = 25
	DefaultModel              = "claude-3-5-haiku-latest"
)

// Duration wraps time.Duration so TOML values can be written as "24h"
// or "90m" rather than nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// ErrNotFound is returned by Load when no config file exists at the
// resolved path. Callers decide whether that is fatal (`mrc run`) or the
// trigger for an interactive setup (`mrc init`).
var ErrNotFound = errors.New("config file not found")

// ConfigError marks configuration-level problems that abort a run.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Config is the full pipeline configuration for one run.
type Config struct {
	// WorkingsBase is where context_<YYYYMMDD> directories are created.
	WorkingsBase string `toml:"workings_base"`

	// NotesExportDir is the markdown tree produced by the notes exporter.
	NotesExportDir string `toml:"notes_export_dir"`

	// TranscriptsDir holds downloaded call-transcript archives.
	TranscriptsDir string `toml:"transcripts_dir"`

	// MinutesDirs are scanned for meeting-minutes documents (.rtf, .md, .txt).
	MinutesDirs []string `toml:"minutes_dirs"`

	// EmailExportDir holds downloaded email batches (emails_<start>.txt,
	// gmail_export*.md).
	EmailExportDir string `toml:"email_export_dir"`

	// ReportsDir holds finished monthly reports; the newest one seeds the
	// period start and the synthesis section taxonomy.
	ReportsDir string `toml:"reports_dir"`

	// Exporters maps a source kind name to the command re-run when that
	// source's export is stale (e.g. notes = "notes-export --output ...").
	Exporters map[string]string `toml:"exporters"`

	LookbackDays       int      `toml:"lookback_days"`
	StalenessThreshold Duration `toml:"staleness_threshold"`
	Concurrency        int      `toml:"concurrency"`
	MaxMinutesFileKB   int      `toml:"max_minutes_file_kb"`

	// Model is the Anthropic model used by the summarize stage.
	Model string `toml:"model"`
}

// DefaultPath returns the standard config location
// (~/.config/mrc/config.toml, honoring XDG_CONFIG_HOME).
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ConfigFileName
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "mrc", ConfigFileName)
}

// Load reads the TOML config at path (DefaultPath when empty), applies
// defaults, then applies MRC_* environment overrides via viper.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := &Config{}
	data, err := os.ReadFile(path) // #nosec G304 - path comes from flag or default
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config as TOML, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.Create(path) // #nosec G304 - path comes from flag or default
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LookbackDays == 0 {
		c.LookbackDays = DefaultLookbackDays
	}
	if c.StalenessThreshold == 0 {
		c.StalenessThreshold = Duration(DefaultStalenessThreshold)
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxMinutesFileKB == 0 {
		c.MaxMinutesFileKB = DefaultMaxMinutesFileKB
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
}

// applyEnv overlays MRC_* environment variables on top of file values.
// Example: MRC_WORKINGS_BASE=/tmp/workings mrc run
func (c *Config) applyEnv() {
	v := viper.New()
	v.SetEnvPrefix("MRC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if s := v.GetString("workings_base"); s != "" {
		c.WorkingsBase = s
	}
	if s := v.GetString("notes_export_dir"); s != "" {
		c.NotesExportDir = s
	}
	if s := v.GetString("transcripts_dir"); s != "" {
		c.TranscriptsDir = s
	}
	if s := v.GetString("email_export_dir"); s != "" {
		c.EmailExportDir = s
	}
	if s := v.GetString("reports_dir"); s != "" {
		c.ReportsDir = s
	}
	if s := v.GetString("model"); s != "" {
		c.Model = s
	}
	if n := v.GetInt("concurrency"); n > 0 {
		c.Concurrency = n
	}
	if n := v.GetInt("lookback_days"); n > 0 {
		c.LookbackDays = n
	}
	if d := v.GetDuration("staleness_threshold"); d > 0 {
		c.StalenessThreshold = Duration(d)
	}
}

// Validate checks that the configuration can support a run. Only the
// workings base is mandatory: missing source directories degrade to
// skipped sources, not configuration errors.
func (c *Config) Validate() error {
	if c.WorkingsBase == "" {
		return &ConfigError{Field: "workings_base", Msg: "required"}
	}
	if c.LookbackDays < 1 {
		return &ConfigError{Field: "lookback_days", Msg: "must be at least 1"}
	}
	if c.Concurrency < 1 {
		return &ConfigError{Field: "concurrency", Msg: "must be at least 1"}
	}
	return nil
}
