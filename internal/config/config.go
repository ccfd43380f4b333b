// Package config loads the lanwatch configuration.
//
// Config file locations (priority order):
//  0. --config on the command line
//  1. $LANWATCH_CONFIG
//  2. ./lanwatch.yaml
//  3. $XDG_CONFIG_HOME/lanwatch/config.yaml
//  4. ~/.config/lanwatch/config.yaml
//  5. /etc/lanwatch/config.yaml
//
// A few settings can be overridden from the environment (LANWATCH_LISTEN,
// LANWATCH_LOG_LEVEL, LANWATCH_LOG_DEBUG, LANWATCH_LOG_OUTPUT).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSourceName      = "default"
	DefaultHost            = "localhost"
	DefaultPort            = 8840
	DefaultPollInterval    = 60 * time.Second
	DefaultTimeout         = 10 * time.Second
	DefaultListen          = ":8841"
	DefaultShutdownTimeout = 10 * time.Second
)

// Load loads the config named by explicit, or the first one found by
// Locate. With no file at all it returns defaults and an empty path.
func Load(explicit string) (*Config, string, error) {
	path, err := Locate(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg := DefaultConfig()
		if err := cfg.applyEnv(); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// Parse decodes YAML config and fills in defaults. Environment overrides
// are not applied.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a single source on the scanner's default address
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if len(c.Sources) == 0 {
		c.Sources = []SourceConfig{{Name: DefaultSourceName}}
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Host == "" {
			s.Host = DefaultHost
		}
		if s.Port == 0 {
			s.Port = DefaultPort
		}
		if s.PollInterval == 0 {
			s.PollInterval = Duration(DefaultPollInterval)
		}
		if s.Timeout == 0 {
			s.Timeout = Duration(DefaultTimeout)
		}
		s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	}
}

// applyEnv overrides settings from the environment
func (c *Config) applyEnv() error {
	if err := env.Parse(&c.Server); err != nil {
		return fmt.Errorf("parse server env: %w", err)
	}
	if err := env.Parse(&c.Log); err != nil {
		return fmt.Errorf("parse log env: %w", err)
	}
	return nil
}

// Validate checks the config for errors that would prevent startup
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is empty"))
	}

	names := make(map[string]int)
	urls := make(map[string]string)

	for i, s := range c.Sources {
		label := fmt.Sprintf("sources[%d]", i)
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is empty", label))
		} else {
			label = fmt.Sprintf("source %q", s.Name)
			if prev, dup := names[s.Name]; dup {
				errs = append(errs, fmt.Errorf("%s: name already used by sources[%d]", label, prev))
			}
			names[s.Name] = i
		}

		if s.BaseURL == "" && (s.Port < 1 || s.Port > 65535) {
			errs = append(errs, fmt.Errorf("%s: port %d out of range", label, s.Port))
		}

		u, err := url.Parse(s.URL())
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: invalid url: %w", label, err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, fmt.Errorf("%s: url scheme must be http or https", label))
		case u.Host == "":
			errs = append(errs, fmt.Errorf("%s: url has no host", label))
		}

		if prev, dup := urls[s.URL()]; dup {
			errs = append(errs, fmt.Errorf("%s: %s is already polled by source %q", label, s.URL(), prev))
		}
		urls[s.URL()] = s.Name

		if s.PollInterval.Duration() <= 0 {
			errs = append(errs, fmt.Errorf("%s: poll_interval must be positive", label))
		}
		if s.Timeout.Duration() <= 0 {
			errs = append(errs, fmt.Errorf("%s: timeout must be positive", label))
		}
	}

	return errors.Join(errs...)
}

// Source returns the config of a named source
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Listen: %s, Sources: %d", c.Server.Listen, len(c.Sources))
	for _, s := range c.Sources {
		fmt.Fprintf(&b, "\n  %s: %s every %s (%d tracked)", s.Name, s.URL(), s.PollInterval.Duration(), len(s.Selection()))
	}
	return b.String()
}
