package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the config file inside Dir().
const FileName = "config.yaml"

// DefaultUpdaterURL points at a text file holding the current build list URL.
const DefaultUpdaterURL = "https://everestapi.github.io/everestupdater.txt"

// Config is the user configuration stored in config.yaml.
type Config struct {
	// DefaultBranch is assigned to newly added installs.
	DefaultBranch string      `yaml:"default_branch"`
	Downloading   Downloading `yaml:"downloading"`
	Plugins       Plugins     `yaml:"plugins"`

	// rewrite is set when the file was missing or unreadable and should be
	// recreated with the current values.
	rewrite bool
}

// Downloading configures build list lookup and artifact downloads.
type Downloading struct {
	UpdaterURL string `yaml:"updater_url"`
	// EverestBuilds, when set, is used as the build list URL directly.
	EverestBuilds string        `yaml:"everest_builds,omitempty"`
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	BuildListTTL  time.Duration `yaml:"build_list_ttl"`
}

// Plugins configures Lua command plugins.
type Plugins struct {
	Enabled bool `yaml:"enabled"`
	// Dir overrides the plugin directory. Defaults to <config dir>/plugins.
	Dir string `yaml:"dir,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultBranch: "stable",
		Downloading: Downloading{
			UpdaterURL:   DefaultUpdaterURL,
			Timeout:      5 * time.Minute,
			Retries:      3,
			BuildListTTL: 15 * time.Minute,
		},
		Plugins: Plugins{Enabled: true},
	}
}

// Validate checks field values after decoding.
func (c *Config) Validate() error {
	var errs []error
	if c.DefaultBranch == "" {
		errs = append(errs, errors.New("default_branch must not be empty"))
	}
	if err := validateURL(c.Downloading.UpdaterURL); err != nil {
		errs = append(errs, fmt.Errorf("downloading.updater_url: %w", err))
	}
	if c.Downloading.EverestBuilds != "" {
		if err := validateURL(c.Downloading.EverestBuilds); err != nil {
			errs = append(errs, fmt.Errorf("downloading.everest_builds: %w", err))
		}
	}
	if c.Downloading.Timeout <= 0 {
		errs = append(errs, errors.New("downloading.timeout must be positive"))
	}
	if c.Downloading.Retries < 0 || c.Downloading.Retries > 10 {
		errs = append(errs, fmt.Errorf("downloading.retries must be between 0 and 10, got %d", c.Downloading.Retries))
	}
	if c.Downloading.BuildListTTL < 0 {
		errs = append(errs, errors.New("downloading.build_list_ttl must not be negative"))
	}
	return errors.Join(errs...)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// Load reads the config file at path. A missing file yields the defaults.
// A file that does not decode or validate also yields the defaults, with a
// warning, and is recreated by the next Save; only errors reading an
// existing file are returned.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.rewrite = true
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		logger.Warn("ignoring invalid config file, using defaults", "path", path, "error", err)
		cfg = Default()
		cfg.rewrite = true
	}
	return cfg, nil
}

// Parse decodes and validates config file content. Keys not present keep
// their default values; unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NeedsSave reports whether the file backing this config is missing or was
// replaced by defaults.
func (c *Config) NeedsSave() bool {
	return c.rewrite
}

// Save writes the config to path. An existing unreadable file is kept as
// path+".bak" before being replaced.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if c.rewrite {
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, path+".bak"); err != nil {
				return fmt.Errorf("failed to back up config: %w", err)
			}
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}

	c.rewrite = false
	return nil
}

// PluginDir returns the configured plugin directory, or the default one
// under configDir.
func (c *Config) PluginDir(configDir string) string {
	if c.Plugins.Dir != "" {
		return c.Plugins.Dir
	}
	return filepath.Join(configDir, "plugins")
}
