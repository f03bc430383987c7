package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/config"
	"github.com/blackwell-systems/brewnotify/internal/logging"
	"github.com/blackwell-systems/brewnotify/internal/settings"
	"github.com/blackwell-systems/brewnotify/internal/store"
)

// env is what most commands need: resolved config, a logger and the
// settings store.
type env struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    *store.Store
	settings *settings.Settings
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// brewOptions points brew lookups at the configured override, if any.
func (e *env) brewOptions() []brew.Option {
	if e.cfg.BrewPath == "" {
		return nil
	}
	return []brew.Option{brew.WithBrewPath(e.cfg.BrewPath)}
}

// loadConfig resolves config from the file, environment and root flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(
		config.WithConfigFile(configFile),
		config.WithOverrides(map[string]any{
			config.KeyDataDir:   dataDir,
			config.KeyBrewPath:  brewPath,
			config.KeyLogLevel:  logLevel,
			config.KeyLogFormat: logFormat,
		}),
	)
	if err != nil {
		return nil, err
	}
	// --log-level applies to the daemon too.
	if logLevel != "" {
		cfg.DaemonLogLevel = logLevel
	}
	return cfg, nil
}

// openEnv loads config, creates the data directory and opens the settings
// store. Diagnostics go to logOut at level.
func openEnv(logOut io.Writer, daemon bool) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if daemon {
		level = cfg.DaemonLogLevel
	}
	log, err := logging.Setup(level, cfg.LogFormat, logOut)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := settings.Open(st, cfg.Defaults, log)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	log.WithFields(logrus.Fields{
		"data_dir": cfg.DataDir,
		"config":   cfg.File,
	}).Debug("configuration loaded")

	return &env{cfg: cfg, log: log, store: st, settings: s}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
