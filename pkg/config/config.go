package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// MaxCapacity guards against accidental misconfiguration of the ring size.
const MaxCapacity = 64 * 1024 * 1024

// Config holds application configuration
type Config struct {
	LogLevel      string        `yaml:"log_level" default:"warn"`
	Capacity      int           `yaml:"capacity" default:"65536"`      // max unread bytes per stream
	FrameInterval time.Duration `yaml:"frame_interval" default:"16ms"` // consumer drain period
	FrameBudget   int           `yaml:"frame_budget" default:"32768"`  // max bytes drained per frame
	HistorySize   int           `yaml:"history_size" default:"4096"`   // bytes kept for --tail
	StatusEvents  uint32        `yaml:"status_events" default:"64"`    // queued status events before overwrite
	CloseSource   bool          `yaml:"close_source" default:"true"`   // Close also closes the transport
	DialTimeout   time.Duration `yaml:"dial_timeout" default:"10s"`    // network transports
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Capacity <= 0 || c.Capacity > MaxCapacity {
		errs = append(errs, fmt.Errorf("capacity: must be in 1..%d, got %d", MaxCapacity, c.Capacity))
	}
	if c.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("frame_interval: must be > 0, got %v", c.FrameInterval))
	}
	if c.FrameBudget <= 0 {
		errs = append(errs, fmt.Errorf("frame_budget: must be > 0, got %d", c.FrameBudget))
	}
	if c.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("history_size: must be >= 0, got %d", c.HistorySize))
	}
	if c.StatusEvents == 0 {
		errs = append(errs, errors.New("status_events: must be > 0"))
	}
	return errors.Join(errs...)
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
