package config

import (
	"net"
	"strconv"
	"time"

	"lanwatch/internal/domain"
	"lanwatch/internal/logger"
)

// Config is the root configuration structure
type Config struct {
	Version int            `yaml:"version"`
	Server  ServerConfig   `yaml:"server"`
	Log     logger.Config  `yaml:"log"`
	Sources []SourceConfig `yaml:"sources"`
}

// ServerConfig holds the consumer API listener settings
type ServerConfig struct {
	Listen          string   `yaml:"listen" env:"LANWATCH_LISTEN"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout,omitempty"`
}

// SourceConfig describes one WatchYourLAN instance to poll
type SourceConfig struct {
	Name           string   `yaml:"name"`
	Host           string   `yaml:"host,omitempty"`
	Port           int      `yaml:"port,omitempty"`
	BaseURL        string   `yaml:"base_url,omitempty"` // overrides host and port
	PollInterval   Duration `yaml:"poll_interval,omitempty"`
	Timeout        Duration `yaml:"timeout,omitempty"`
	DevicesToTrack []string `yaml:"devices_to_track,omitempty"`
}

// URL returns the scanner base URL
func (s SourceConfig) URL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return "http://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Selection returns the configured devices as a selection set
func (s SourceConfig) Selection() domain.SelectionSet {
	return domain.NewSelectionSet(s.DevicesToTrack...)
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler. A bare integer is a number of
// seconds, as scan_interval was in older scanner configs.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var secs int64
	if err := unmarshal(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
