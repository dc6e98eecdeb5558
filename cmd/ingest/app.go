package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"polymarket-ingest/internal/checkpoint"
	"polymarket-ingest/internal/client/polymarket/clob"
	polymarketdata "polymarket-ingest/internal/client/polymarket/data"
	polymarketgamma "polymarket-ingest/internal/client/polymarket/gamma"
	"polymarket-ingest/internal/config"
	"polymarket-ingest/internal/db"
	"polymarket-ingest/internal/gateway"
	"polymarket-ingest/internal/logger"
	"polymarket-ingest/internal/metrics"
	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/ratelimit"
	gormrepository "polymarket-ingest/internal/repository/gorm"
	"polymarket-ingest/internal/retry"
	"polymarket-ingest/internal/service"
)

// app holds everything a command needs once config and database are up.
type app struct {
	cfg          config.Config
	logger       *zap.Logger
	db           *db.DB
	registry     *prometheus.Registry
	orchestrator *service.Orchestrator
	tracker      *service.RunTracker
}

func newApp(opts rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath, opts.envOnly)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.verbose {
		cfg.Log.Verbose = true
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(log.Sugar().Debugf)); err != nil {
		log.Warn("set GOMAXPROCS failed", zap.Error(err))
	}

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		_ = db.Close(dbConn)
		_ = log.Sync()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	a := &app{cfg: cfg, logger: log, db: dbConn, registry: registry}
	a.wire(m)
	return a, nil
}

func (a *app) wire(m *metrics.Metrics) {
	cfg := a.cfg
	log := a.logger

	gw := &gateway.Gateway{
		Gamma: polymarketgamma.NewClient(&http.Client{Timeout: cfg.Gamma.Timeout}, cfg.Gamma.BaseURL),
		Clob:  clob.NewClient(&http.Client{Timeout: cfg.ClobREST.Timeout}, cfg.ClobREST.BaseURL),
		Data:  polymarketdata.NewClient(&http.Client{Timeout: cfg.Data.Timeout}, cfg.Data.BaseURL),
		Governor: ratelimit.NewGovernor(
			ratelimit.LimitsFromConfig(cfg.RateLimits),
			ratelimit.WithFallback(ratelimit.ClassGammaGeneral),
			ratelimit.WithMetrics(m),
		),
		Retry: retry.NewExecutor(retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
		}, log, m),
	}

	store := gormrepository.New(a.db.Gorm).WithTxBudget(gormrepository.TxBudget{
		MaxWait: cfg.DB.TxMaxWait,
		Timeout: cfg.DB.TxTimeout,
	})
	checkpoints := checkpoint.New(store)
	ingest := cfg.Ingest

	a.tracker = &service.RunTracker{
		Store:             store,
		Logger:            log,
		Metrics:           m,
		MaxRecordedErrors: ingest.MaxRecordedErrors,
	}
	a.orchestrator = &service.Orchestrator{
		Tracker: a.tracker,
		Markets: &service.MarketSyncService{
			Store:       store,
			Checkpoints: checkpoints,
			Source:      gw,
			Logger:      log,
			Metrics:     m,
			BatchSize:   ingest.MarketsBatchSize,
			MaxErrors:   ingest.MaxErrors,
		},
		Comments: &service.CommentSyncService{
			Store:       store,
			Checkpoints: checkpoints,
			Source:      gw,
			Logger:      log,
			Metrics:     m,
			BatchSize:   ingest.CommentsBatchSize,
			Workers:     ingest.CommentWorkers,
			MaxErrors:   ingest.MaxErrors,
		},
		Prices: &service.PriceHistorySyncService{
			Store:            store,
			Source:           gw,
			Logger:           log,
			Metrics:          m,
			PageSize:         ingest.PricePageSize,
			FlushRows:        ingest.PriceFlushRows,
			FlushTokens:      ingest.PriceFlushTokens,
			ChunkSize:        ingest.InsertChunkSize,
			MaxErrors:        ingest.MaxErrors,
			ProgressInterval: ingest.ProgressInterval,
		},
		Positions: &service.PositionSyncService{
			Store:     store,
			Source:    gw,
			Logger:    log,
			Metrics:   m,
			PageSize:  ingest.PositionsPageSize,
			Workers:   ingest.UserWorkers,
			MaxErrors: ingest.MaxErrors,
		},
		Trades: &service.TradeSyncService{
			Store:             store,
			Source:            gw,
			Logger:            log,
			Metrics:           m,
			PageSize:          ingest.TradesPageSize,
			Workers:           ingest.UserWorkers,
			MaxErrors:         ingest.MaxErrors,
			BoundaryLookahead: cfg.Trades.BoundaryLookaheadPages,
		},
		PriceRefresh: service.PriceRefreshOptions{
			Interval:     cfg.PriceHistory.Interval,
			Fidelity:     cfg.PriceHistory.Fidelity,
			LookbackDays: cfg.PriceHistory.LookbackDays,
		},
		IncludeUserSync: ingest.IncludeUserSync,
		Logger:          log,
	}
}

func (a *app) close() {
	if err := db.Close(a.db); err != nil {
		a.logger.Warn("db close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) runAll(ctx context.Context) (*models.ScraperRun, error) {
	return a.orchestrator.RunAll(ctx)
}

func (a *app) runMarkets(ctx context.Context) (*models.ScraperRun, error) {
	return a.orchestrator.RunMarkets(ctx)
}

func (a *app) runComments(ctx context.Context) (*models.ScraperRun, error) {
	return a.orchestrator.RunComments(ctx)
}

func (a *app) runPrices(ctx context.Context) (*models.ScraperRun, error) {
	return a.orchestrator.RunPrices(ctx)
}

func (a *app) runPositions(ctx context.Context) (*models.ScraperRun, error) {
	return a.orchestrator.RunPositions(ctx)
}

func (a *app) runTrades(ctx context.Context) (*models.ScraperRun, error) {
	return a.orchestrator.RunTrades(ctx)
}
