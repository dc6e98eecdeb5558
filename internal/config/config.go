package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingDSN = errors.New("database dsn is required (db.dsn, PM_DB_DSN or DATABASE_URL)")

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	DB           DBConfig           `mapstructure:"db"`
	Cron         CronConfig         `mapstructure:"cron"`
	Gamma        ClientConfig       `mapstructure:"gamma"`
	Data         ClientConfig       `mapstructure:"data"`
	ClobREST     ClientConfig       `mapstructure:"clob_rest"`
	Ingest       IngestConfig       `mapstructure:"ingest"`
	PriceHistory PriceHistoryConfig `mapstructure:"price_history"`
	Trades       TradesConfig       `mapstructure:"trades"`
	Retry        RetryConfig        `mapstructure:"retry"`
	RateLimits   RateLimitsConfig   `mapstructure:"rate_limits"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	Verbose           bool   `mapstructure:"verbose"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	TxMaxWait       time.Duration `mapstructure:"tx_max_wait"`
	TxTimeout       time.Duration `mapstructure:"tx_timeout"`
}

type CronConfig struct {
	SyncAll string `mapstructure:"sync_all"`
}

// ClientConfig describes one upstream host.
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type IngestConfig struct {
	MarketsBatchSize  int           `mapstructure:"markets_batch_size"`
	CommentsBatchSize int           `mapstructure:"comments_batch_size"`
	PositionsPageSize int           `mapstructure:"positions_page_size"`
	TradesPageSize    int           `mapstructure:"trades_page_size"`
	PricePageSize     int           `mapstructure:"price_page_size"`
	PriceFlushRows    int           `mapstructure:"price_flush_rows"`
	PriceFlushTokens  int           `mapstructure:"price_flush_tokens"`
	InsertChunkSize   int           `mapstructure:"insert_chunk_size"`
	MaxErrors         int           `mapstructure:"max_errors"`
	MaxRecordedErrors int           `mapstructure:"max_recorded_errors"`
	CommentWorkers    int           `mapstructure:"comment_workers"`
	UserWorkers       int           `mapstructure:"user_workers"`
	IncludeUserSync   bool          `mapstructure:"include_user_sync"`
	ProgressInterval  time.Duration `mapstructure:"progress_interval"`
}

type PriceHistoryConfig struct {
	Interval     string `mapstructure:"interval"`
	Fidelity     int    `mapstructure:"fidelity"`
	LookbackDays int    `mapstructure:"lookback_days"`
}

type TradesConfig struct {
	BoundaryLookaheadPages int `mapstructure:"boundary_lookahead_pages"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

type RateLimitsConfig struct {
	Interval         time.Duration     `mapstructure:"interval"`
	MinSpacing       time.Duration     `mapstructure:"min_spacing"`
	GammaGeneral     int               `mapstructure:"gamma_general"`
	GammaMarkets     int               `mapstructure:"gamma_markets"`
	GammaComments    int               `mapstructure:"gamma_comments"`
	ClobPriceHistory int               `mapstructure:"clob_price_history"`
	DataPositions    int               `mapstructure:"data_positions"`
	DataTrades       int               `mapstructure:"data_trades"`
	Concurrency      ConcurrencyConfig `mapstructure:"concurrency"`
}

type ConcurrencyConfig struct {
	General      int `mapstructure:"general"`
	Markets      int `mapstructure:"markets"`
	Comments     int `mapstructure:"comments"`
	PriceHistory int `mapstructure:"price_history"`
	Positions    int `mapstructure:"positions"`
	Trades       int `mapstructure:"trades"`
}

var priceIntervals = map[string]bool{"1m": true, "1h": true, "6h": true, "1d": true, "1w": true, "max": true}

func Load(path string, envOnly bool) (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	if err := v.BindEnv("db.dsn", "PM_DB_DSN", "DATABASE_URL"); err != nil {
		return Config{}, err
	}
	setDefaults(v)

	if !envOnly && path != "" {
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", true)
	v.SetDefault("log.verbose", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.tx_max_wait", "30s")
	v.SetDefault("db.tx_timeout", "60s")
	v.SetDefault("cron.sync_all", "0 0 */6 * * *")
	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "30s")
	v.SetDefault("data.base_url", "https://data-api.polymarket.com")
	v.SetDefault("data.timeout", "30s")
	v.SetDefault("clob_rest.base_url", "https://clob.polymarket.com")
	v.SetDefault("clob_rest.timeout", "30s")

	v.SetDefault("ingest.markets_batch_size", 100)
	v.SetDefault("ingest.comments_batch_size", 50)
	v.SetDefault("ingest.positions_page_size", 500)
	v.SetDefault("ingest.trades_page_size", 500)
	v.SetDefault("ingest.price_page_size", 1000)
	v.SetDefault("ingest.price_flush_rows", 10000)
	v.SetDefault("ingest.price_flush_tokens", 100)
	v.SetDefault("ingest.insert_chunk_size", 10000)
	v.SetDefault("ingest.max_errors", 100)
	v.SetDefault("ingest.max_recorded_errors", 100)
	v.SetDefault("ingest.comment_workers", 3)
	v.SetDefault("ingest.user_workers", 5)
	v.SetDefault("ingest.include_user_sync", false)
	v.SetDefault("ingest.progress_interval", "10s")

	v.SetDefault("price_history.interval", "1d")
	v.SetDefault("price_history.fidelity", 60)
	v.SetDefault("price_history.lookback_days", 30)
	v.SetDefault("trades.boundary_lookahead_pages", 1)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")

	v.SetDefault("rate_limits.interval", "10s")
	v.SetDefault("rate_limits.min_spacing", "0s")
	v.SetDefault("rate_limits.gamma_general", 750)
	v.SetDefault("rate_limits.gamma_markets", 100)
	v.SetDefault("rate_limits.gamma_comments", 100)
	v.SetDefault("rate_limits.clob_price_history", 100)
	v.SetDefault("rate_limits.data_positions", 90)
	v.SetDefault("rate_limits.data_trades", 90)
	v.SetDefault("rate_limits.concurrency.general", 10)
	v.SetDefault("rate_limits.concurrency.markets", 5)
	v.SetDefault("rate_limits.concurrency.comments", 3)
	v.SetDefault("rate_limits.concurrency.price_history", 10)
	v.SetDefault("rate_limits.concurrency.positions", 5)
	v.SetDefault("rate_limits.concurrency.trades", 5)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DB.DSN) == "" {
		return ErrMissingDSN
	}
	sizes := map[string]int{
		"ingest.markets_batch_size":  c.Ingest.MarketsBatchSize,
		"ingest.comments_batch_size": c.Ingest.CommentsBatchSize,
		"ingest.positions_page_size": c.Ingest.PositionsPageSize,
		"ingest.trades_page_size":    c.Ingest.TradesPageSize,
		"ingest.price_page_size":     c.Ingest.PricePageSize,
		"ingest.insert_chunk_size":   c.Ingest.InsertChunkSize,
		"retry.max_attempts":         c.Retry.MaxAttempts,
	}
	for key, val := range sizes {
		if val <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, val)
		}
	}
	if c.RateLimits.Interval <= 0 {
		return fmt.Errorf("rate_limits.interval must be positive")
	}
	if !priceIntervals[c.PriceHistory.Interval] {
		return fmt.Errorf("price_history.interval %q is not one of 1m, 1h, 6h, 1d, 1w, max", c.PriceHistory.Interval)
	}
	return nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
