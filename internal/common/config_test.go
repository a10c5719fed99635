package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 0.20, cfg.Structuring.HeaderRatio)
	assert.Equal(t, 0.15, cfg.Structuring.FooterRatio)
	assert.Equal(t, 300, cfg.Structuring.ContextWindowPx)
	assert.Equal(t, 3, cfg.Structuring.AnchorExcess)
	assert.Equal(t, []string{"eng"}, cfg.Structuring.Languages)
	assert.Equal(t, 2*time.Minute, cfg.Queue.ProcessTimeout)
	assert.Empty(t, cfg.Ingest.WatchDirs)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_URL", "file:results.db")
	t.Setenv("HEADER_RATIO", "0.25")
	t.Setenv("ANCHOR_CONTEXT_PX", "150")
	t.Setenv("LANGUAGES", "eng+hin")
	t.Setenv("OCR_LANGUAGES", "eng, deu ,")
	t.Setenv("QUEUE_WORKERS", "not-a-number")
	t.Setenv("QUEUE_PROCESS_TIMEOUT", "45s")
	t.Setenv("WATCH_DIRS", "/srv/inbox,/srv/scans")
	t.Setenv("WATCH_SKIP_HIDDEN", "false")
	t.Setenv("WATCH_INITIAL_SCAN", "maybe")

	cfg := LoadConfig()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:results.db", cfg.Database.DSN)
	assert.Equal(t, 0.25, cfg.Structuring.HeaderRatio)
	assert.Equal(t, 150, cfg.Structuring.ContextWindowPx)
	assert.Equal(t, []string{"eng", "hin"}, cfg.Structuring.Languages)
	assert.Equal(t, []string{"eng", "deu"}, cfg.OCR.Languages)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, 45*time.Second, cfg.Queue.ProcessTimeout)
	assert.Equal(t, []string{"/srv/inbox", "/srv/scans"}, cfg.Ingest.WatchDirs)
	assert.False(t, cfg.Ingest.SkipHidden)
	assert.True(t, cfg.Ingest.InitialScan)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"no http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "HTTP_ADDR"},
		{"ratios overflow", func(c *Config) { c.Structuring.HeaderRatio = 0.9 }, "HEADER_RATIO"},
		{"negative window", func(c *Config) { c.Structuring.ContextWindowPx = -1 }, "ANCHOR_CONTEXT_PX"},
		{"no workers", func(c *Config) { c.Queue.Workers = 0 }, "QUEUE_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var appErr *AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "CONFIG_ERROR", appErr.Code)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
