package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/mons/internal/classify"
	"github.com/blackwell-systems/mons/internal/config"
	"github.com/blackwell-systems/mons/internal/everest"
	"github.com/blackwell-systems/mons/internal/install"
	"github.com/blackwell-systems/mons/internal/logging"
	"github.com/blackwell-systems/mons/internal/output"
	"github.com/blackwell-systems/mons/internal/store"
	"github.com/spf13/cobra"
)

const dbFileName = "mons.db"

// session holds the state loaded for one command invocation. It is opened
// at the start of a command and finished when the command returns, which
// writes back whatever changed.
type session struct {
	cfg        *config.Config
	cfgPath    string
	dataDir    string
	store      *store.Store
	registry   *install.Registry
	cache      *classify.Cache
	classifier *classify.Classifier
	logger     *slog.Logger
}

// newLogger returns the logger for cmd, honoring --verbose.
func newLogger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), verbose)
}

// getConfigPath returns the config file path, using the flag value or default
func getConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, config.FileName), nil
}

// getDataDir returns the data directory, creating it if needed.
func getDataDir() (string, error) {
	dir := dataDir
	if dir == "" {
		var err error
		if dir, err = config.DataDir(); err != nil {
			return "", fmt.Errorf("failed to locate data directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// getCacheDir returns the download cache directory, creating it if needed.
// It lives under the data directory when --data-dir is given.
func getCacheDir() (string, error) {
	dir := ""
	if dataDir != "" {
		dir = filepath.Join(dataDir, "cache")
	} else {
		var err error
		if dir, err = config.CacheDir(); err != nil {
			return "", fmt.Errorf("failed to locate cache directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return dir, nil
}

// openSession loads the config, the database, the install registry and the
// classification cache.
func openSession(cmd *cobra.Command) (*session, error) {
	logger := newLogger(cmd)

	cfgPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath, logger)
	if err != nil {
		return nil, err
	}

	dir, err := getDataDir()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(dir, dbFileName), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	registry := install.NewRegistry(st, logger)
	if err := registry.Load(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load installs: %w", err)
	}

	cache := classify.NewCache(st, logger)
	if err := cache.Load(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load classification cache: %w", err)
	}

	return &session{
		cfg:        cfg,
		cfgPath:    cfgPath,
		dataDir:    dir,
		store:      st,
		registry:   registry,
		cache:      cache,
		classifier: classify.NewClassifier(cache, nil, logger),
		logger:     logger,
	}, nil
}

// finish writes back modified state and closes the database. It is meant to
// be deferred with the command's named error so that write failures are
// reported; state is flushed even when the command itself failed.
func (s *session) finish(errp *error) {
	var errs []error

	if err := s.registry.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save installs: %w", err))
	}
	if err := s.cache.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save classification cache: %w", err))
	}
	if s.cfg.NeedsSave() {
		if err := s.cfg.Save(s.cfgPath); err != nil {
			errs = append(errs, fmt.Errorf("failed to save config: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	if len(errs) > 0 {
		*errp = errors.Join(append([]error{*errp}, errs...)...)
	}
}

// everestClient returns a build client configured from the user config.
// Download progress is drawn on progressOut.
func (s *session) everestClient(progressOut io.Writer) (*everest.Client, error) {
	cacheDir, err := getCacheDir()
	if err != nil {
		return nil, err
	}

	d := s.cfg.Downloading
	opts := []everest.Option{
		everest.WithUpdaterURL(d.UpdaterURL),
		everest.WithCache(cacheDir, d.BuildListTTL),
		everest.WithRetries(d.Retries),
		everest.WithTimeout(d.Timeout),
		everest.WithProgress(output.Transfer(progressOut)),
		everest.WithLogger(s.logger),
	}
	if d.EverestBuilds != "" {
		opts = append(opts, everest.WithBuildListURL(d.EverestBuilds))
	}
	return everest.NewClient(opts...), nil
}
