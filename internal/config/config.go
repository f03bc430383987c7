// Package config loads process configuration for brewnotify.
//
// Precedence, lowest first: built-in defaults, the user config file,
// BREWNOTIFY_* environment variables, then explicit overrides (CLI flags).
// User-editable settings such as the schedule live in the settings store,
// not here; the defaults.* keys only seed that store on first run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/brewnotify/internal/schedule"
)

const (
	KeyDataDir        = "data-dir"
	KeyBrewPath       = "brew-path"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
	KeyDaemonLogLevel = "log.daemon-level"
	KeyDefaultMode    = "defaults.schedule-mode"
	KeyDefaultMinutes = "defaults.interval-minutes"
	KeyDefaultHour    = "defaults.daily-start-hour"
)

const envPrefix = "BREWNOTIFY"

// DBFileName is the settings database inside the data directory.
const DBFileName = "brewnotify.db"

// Config is the resolved process configuration.
type Config struct {
	DataDir        string
	BrewPath       string
	LogLevel       string // interactive commands
	DaemonLogLevel string // watch, foreground or detached
	LogFormat      string
	Defaults       schedule.Config

	// File is the config file that was merged, empty if none existed.
	File string
}

// DBPath returns the settings database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFileName)
}

// PIDFile returns the daemon PID file path.
func (c *Config) PIDFile() string {
	return filepath.Join(c.DataDir, "watch.pid")
}

// LogFile returns the daemon log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "watch.log")
}

type loadSettings struct {
	configFile string
	overrides  map[string]any
}

// Option configures Load.
type Option func(*loadSettings)

// WithConfigFile reads path instead of the default user config file.
func WithConfigFile(path string) Option {
	return func(s *loadSettings) {
		s.configFile = path
	}
}

// WithOverrides applies values that beat every other source, typically set
// CLI flags. Empty strings are skipped so unset flags do not mask the file.
func WithOverrides(overrides map[string]any) Option {
	return func(s *loadSettings) {
		if s.overrides == nil {
			s.overrides = make(map[string]any)
		}
		for k, v := range overrides {
			if str, ok := v.(string); ok && strings.TrimSpace(str) == "" {
				continue
			}
			s.overrides[k] = v
		}
	}
}

// Dir returns the brewnotify config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/brewnotify if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "brewnotify"), nil
}

// Load resolves the configuration.
func Load(opts ...Option) (*Config, error) {
	var settings loadSettings
	for _, opt := range opts {
		opt(&settings)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determine user home: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, home)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := strings.TrimSpace(settings.configFile)
	explicit := path != ""
	if !explicit {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("determine config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	merged, err := mergeConfigFile(v, path, explicit)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	for k, val := range settings.overrides {
		v.Set(k, val)
	}

	mode, err := schedule.ParseMode(v.GetString(KeyDefaultMode))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyDefaultMode, err)
	}

	cfg := &Config{
		DataDir:        expandHome(v.GetString(KeyDataDir), home),
		BrewPath:       expandHome(v.GetString(KeyBrewPath), home),
		LogLevel:       v.GetString(KeyLogLevel),
		DaemonLogLevel: v.GetString(KeyDaemonLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		Defaults: schedule.Config{
			Mode:            mode,
			IntervalMinutes: v.GetInt(KeyDefaultMinutes),
			DailyStartHour:  v.GetInt(KeyDefaultHour),
		},
	}
	if merged {
		cfg.File = path
	}

	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default schedule: %w", err)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyDataDir)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault(KeyDataDir, filepath.Join(home, ".brewnotify"))
	v.SetDefault(KeyBrewPath, "")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyDaemonLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyDefaultMode, string(schedule.DefaultMode))
	v.SetDefault(KeyDefaultMinutes, schedule.DefaultIntervalMinutes)
	v.SetDefault(KeyDefaultHour, schedule.DefaultDailyStartHour)
}

// mergeConfigFile reports whether a file was merged. A missing file is an
// error only when the path was given explicitly.
func mergeConfigFile(v *viper.Viper, path string, required bool) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		if required {
			return false, fmt.Errorf("config file %s does not exist", path)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
