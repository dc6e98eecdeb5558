package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsFromEnvOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ingest")

	cfg, err := Load("", true)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/ingest", cfg.DB.DSN)
	assert.Equal(t, 100, cfg.Ingest.MarketsBatchSize)
	assert.Equal(t, 50, cfg.Ingest.CommentsBatchSize)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.RateLimits.Interval)
	assert.Equal(t, 750, cfg.RateLimits.GammaGeneral)
	assert.Equal(t, 90, cfg.RateLimits.DataTrades)
	assert.Equal(t, 10, cfg.RateLimits.Concurrency.PriceHistory)
	assert.Equal(t, "1d", cfg.PriceHistory.Interval)
	assert.Equal(t, 60, cfg.PriceHistory.Fidelity)
	assert.Equal(t, 30, cfg.PriceHistory.LookbackDays)
	assert.Equal(t, 30*time.Second, cfg.DB.TxMaxWait)
	assert.Equal(t, 60*time.Second, cfg.DB.TxTimeout)
}

func TestLoad_MissingDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PM_DB_DSN", "")

	_, err := Load("", true)
	require.ErrorIs(t, err, ErrMissingDSN)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
db:
  dsn: postgres://file/ingest
ingest:
  markets_batch_size: 25
rate_limits:
  gamma_markets: 7
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PM_INGEST_COMMENTS_BATCH_SIZE", "10")

	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/ingest", cfg.DB.DSN)
	assert.Equal(t, 25, cfg.Ingest.MarketsBatchSize)
	assert.Equal(t, 10, cfg.Ingest.CommentsBatchSize)
	assert.Equal(t, 7, cfg.RateLimits.GammaMarkets)
}

func TestLoad_MissingFileIsTolerated(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ingest")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ingest")
	base, err := Load("", true)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.Ingest.MarketsBatchSize = 0 }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"bad interval", func(c *Config) { c.PriceHistory.Interval = "2d" }},
		{"zero window", func(c *Config) { c.RateLimits.Interval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
