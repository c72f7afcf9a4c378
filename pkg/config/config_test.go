package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 65536, cfg.Capacity)
	assert.Equal(t, 16*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, 32768, cfg.FrameBudget)
	assert.Equal(t, 4096, cfg.HistorySize)
	assert.Equal(t, uint32(64), cfg.StatusEvents)
	assert.True(t, cfg.CloseSource)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     logrus.Level
	}{
		{
			name:     "creates logger with debug level",
			logLevel: "debug",
			want:     logrus.DebugLevel,
		},
		{
			name:     "creates logger with info level",
			logLevel: "info",
			want:     logrus.InfoLevel,
		},
		{
			name:     "creates logger with error level",
			logLevel: "error",
			want:     logrus.ErrorLevel,
		},
		{
			name:     "falls back to warn on garbage",
			logLevel: "chatty",
			want:     logrus.WarnLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.want, logger.GetLevel())

			// Verify formatter is set correctly
			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("overrides only the keys present", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
capacity: 1024
frame_interval: 5ms
close_source: false
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 1024, cfg.Capacity)
		assert.Equal(t, 5*time.Millisecond, cfg.FrameInterval)
		assert.False(t, cfg.CloseSource)
		assert.Equal(t, 32768, cfg.FrameBudget, "missing keys MUST keep defaults")
		assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("capacity: 0\nlog_level: loud\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "capacity")
		assert.Contains(t, err.Error(), "log_level")
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("capacity: [1, 2"), 0o600))

		_, err := Load(path)
		assert.ErrorContains(t, err, "failed to parse config")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(*Config) {}, valid: true},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }},
		{name: "huge capacity", mutate: func(c *Config) { c.Capacity = MaxCapacity + 1 }},
		{name: "zero frame interval", mutate: func(c *Config) { c.FrameInterval = 0 }},
		{name: "zero frame budget", mutate: func(c *Config) { c.FrameBudget = 0 }},
		{name: "negative history", mutate: func(c *Config) { c.HistorySize = -1 }},
		{name: "no history", mutate: func(c *Config) { c.HistorySize = 0 }, valid: true},
		{name: "zero status events", mutate: func(c *Config) { c.StatusEvents = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func BenchmarkDefaultConfig(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = DefaultConfig()
	}
}
