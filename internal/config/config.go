// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package config holds the application configuration. Values are read from
// an optional TOML file and can be overridden via WGARCHIVE_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv  = "WGARCHIVE"
	configFile = "config.toml"

	// DefaultBaseURL is the production site. Overridable so tests and
	// mirrors can point the client elsewhere.
	DefaultBaseURL = "https://www.windguru.cz"
)

// Config represents the application's configuration structure.
type Config struct {
	BaseURL  string     `fig:"base_url" default:"https://www.windguru.cz"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Archive struct {
		// Allowed values: 1 to 24
		StepHours int           `fig:"step_hours" default:"2"`
		Workers   int           `fig:"workers" default:"4"`
		Attempts  int           `fig:"attempts" default:"3"`
		Backoff   time.Duration `fig:"backoff" default:"250ms"`
		Timeout   time.Duration `fig:"timeout" default:"20s"`
	} `fig:"archive"`

	Vault struct {
		DisableKeyring bool `fig:"disable_keyring"`
	} `fig:"vault"`

	Intervals struct {
		Watch     time.Duration `fig:"watch" default:"1h"`
		KeepAlive time.Duration `fig:"keepalive" default:"6h"`
	} `fig:"intervals"`
}

// New loads the configuration from the default location, falling back to
// defaults when no file exists. Environment variables always win.
func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.Dirs(configDir()), fig.File(configFile), fig.AllowNoFile(),
		fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

// NewFromFile loads the configuration from an explicit path and file.
func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Archive.StepHours < 1 || c.Archive.StepHours > 24 {
		return fmt.Errorf("invalid archive step hours: %d", c.Archive.StepHours)
	}
	if c.Archive.Workers < 1 {
		return fmt.Errorf("invalid archive worker count: %d", c.Archive.Workers)
	}
	if c.Archive.Attempts < 1 {
		return fmt.Errorf("invalid archive attempt count: %d", c.Archive.Attempts)
	}
	if c.Archive.Backoff < 0 {
		return fmt.Errorf("invalid archive backoff: %s", c.Archive.Backoff)
	}
	if c.Archive.Timeout <= 0 {
		return fmt.Errorf("invalid archive timeout: %s", c.Archive.Timeout)
	}
	if c.Intervals.Watch < time.Minute {
		return fmt.Errorf("watch interval below one minute: %s", c.Intervals.Watch)
	}

	return nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "wgarchive")
}
