// Package config loads the timerctl configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/librescoot/timeout"
)

// Config is the root of the configuration file.
type Config struct {
	Log      Log       `yaml:"log"`
	HTTP     HTTP      `yaml:"http"`
	Managers []Manager `yaml:"managers"`
}

// Log configures the logger.
type Log struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // rotated JSON log; empty disables it
}

// HTTP configures the optional HTTP surface.
type HTTP struct {
	Listen  string `yaml:"listen"` // empty disables the listener
	GinMode string `yaml:"gin_mode"`
}

// Manager declares one timer manager.
type Manager struct {
	ID       string `yaml:"id"`
	Interval string `yaml:"interval"`  // default interval for start without one
	FollowUp string `yaml:"follow_up"` // action type dispatched on expiry
}

// Defaults.
const (
	DefaultInterval = "30s"
	DefaultFollowUp = "timerctl/EXPIRED"
	DefaultLogLevel = "info"
	DefaultGinMode  = "release"
)

// LoadError describes a configuration that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Parse parses and validates a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Message: "invalid configuration", Cause: err}
	}

	return &cfg, nil
}

// Load reads the configuration at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = nil
	} else if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.HTTP.GinMode == "" {
		c.HTTP.GinMode = DefaultGinMode
	}

	hasDefault := false
	for i := range c.Managers {
		m := &c.Managers[i]
		if m.Interval == "" {
			m.Interval = DefaultInterval
		}
		if m.FollowUp == "" {
			m.FollowUp = DefaultFollowUp
		}
		if m.ID == string(timeout.DefaultManagerID) {
			hasDefault = true
		}
	}

	if !hasDefault {
		c.Managers = append([]Manager{{
			ID:       string(timeout.DefaultManagerID),
			Interval: DefaultInterval,
			FollowUp: DefaultFollowUp,
		}}, c.Managers...)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, m := range c.Managers {
		if m.ID == "" {
			return fmt.Errorf("manager without id")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate manager id %q", m.ID)
		}
		seen[m.ID] = true

		if _, err := ParseInterval(m.Interval); err != nil {
			return fmt.Errorf("manager %q: %w", m.ID, err)
		}
	}

	return nil
}

// ParseInterval parses a timer interval: "inf" for an infinite timer, a
// bare number of milliseconds, or a Go duration such as "1m30s".
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "inf", "infinite", "-1":
		return timeout.Infinite, nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("negative interval %q", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative interval %q", s)
	}
	return d, nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
