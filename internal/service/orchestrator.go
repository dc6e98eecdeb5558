package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"polymarket-ingest/internal/logger"
	"polymarket-ingest/internal/models"
)

// PriceRefreshOptions shape the windowed sync-prices sweep.
type PriceRefreshOptions struct {
	Interval     string
	Fidelity     int
	LookbackDays int
}

type Orchestrator struct {
	Tracker         *RunTracker
	Markets         *MarketSyncService
	Comments        *CommentSyncService
	Prices          *PriceHistorySyncService
	Positions       *PositionSyncService
	Trades          *TradeSyncService
	PriceRefresh    PriceRefreshOptions
	IncludeUserSync bool
	Logger          *zap.Logger
}

type stage struct {
	name string
	run  func(ctx context.Context) (Result, error)
}

// RunAll runs markets, comments and price history, then positions and
// trades when user sync is enabled.
func (o *Orchestrator) RunAll(ctx context.Context) (*models.ScraperRun, error) {
	stages := []stage{
		{name: "markets", run: o.Markets.Sync},
		{name: "comments", run: o.Comments.Sync},
		{name: "price-history", run: o.priceHistory(false)},
	}
	if o.IncludeUserSync {
		stages = append(stages,
			stage{name: "positions", run: o.Positions.Sync},
			stage{name: "trades", run: o.Trades.Sync},
		)
	}
	return o.runStages(ctx, models.RunTypeAll, stages)
}

func (o *Orchestrator) RunMarkets(ctx context.Context) (*models.ScraperRun, error) {
	return o.runStages(ctx, models.RunTypeMarkets, []stage{{name: "markets", run: o.Markets.Sync}})
}

func (o *Orchestrator) RunComments(ctx context.Context) (*models.ScraperRun, error) {
	return o.runStages(ctx, models.RunTypeComments, []stage{{name: "comments", run: o.Comments.Sync}})
}

func (o *Orchestrator) RunPriceHistory(ctx context.Context, resume bool) (*models.ScraperRun, error) {
	return o.runStages(ctx, models.RunTypePriceHistory, []stage{{name: "price-history", run: o.priceHistory(resume)}})
}

func (o *Orchestrator) RunPrices(ctx context.Context) (*models.ScraperRun, error) {
	opts := o.PriceRefresh
	return o.runStages(ctx, models.RunTypePrices, []stage{{name: "prices", run: func(ctx context.Context) (Result, error) {
		return o.Prices.SyncRecent(ctx, opts.Interval, opts.Fidelity, opts.LookbackDays)
	}}})
}

func (o *Orchestrator) RunPositions(ctx context.Context) (*models.ScraperRun, error) {
	return o.runStages(ctx, models.RunTypePositions, []stage{{name: "positions", run: o.Positions.Sync}})
}

func (o *Orchestrator) RunTrades(ctx context.Context) (*models.ScraperRun, error) {
	return o.runStages(ctx, models.RunTypeTrades, []stage{{name: "trades", run: o.Trades.Sync}})
}

func (o *Orchestrator) priceHistory(resume bool) func(ctx context.Context) (Result, error) {
	return func(ctx context.Context) (Result, error) {
		return o.Prices.SyncHistory(ctx, resume)
	}
}

// runStages records one run around stages. A failing stage that is not the
// last one is recorded and the sequence goes on; a failing last stage, a
// cancelled context or a failed run write fails the run.
func (o *Orchestrator) runStages(ctx context.Context, runType string, stages []stage) (*models.ScraperRun, error) {
	if o.Tracker == nil {
		return nil, fmt.Errorf("run tracker is nil")
	}
	log := logger.OrNop(o.Logger)
	run, err := o.Tracker.Start(ctx, runType)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("run_uuid", run.UUID), zap.String("run_type", runType))

	var total Result
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, run, total, fmt.Errorf("%s: %w", st.name, err))
		}
		log.Info("stage started", zap.String("stage", st.name))
		res, err := st.run(ctx)
		total.merge(res)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil {
			last := i == len(stages)-1
			if last || ctx.Err() != nil {
				return o.fail(ctx, run, total, fmt.Errorf("%s: %w", st.name, err))
			}
			log.Error("stage failed, continuing", zap.String("stage", st.name), zap.Error(err))
			total.addError(fmt.Sprintf("%s: %v", st.name, err))
		}
		if err := o.Tracker.Update(ctx, run.ID, total.update()); err != nil {
			return o.fail(ctx, run, total, err)
		}
	}

	if err := o.Tracker.Complete(ctx, run.ID, total.update()); err != nil {
		return o.fail(ctx, run, total, err)
	}
	return o.Tracker.Get(ctx, run.ID)
}

func (o *Orchestrator) fail(ctx context.Context, run *Run, total Result, cause error) (*models.ScraperRun, error) {
	// The failure must be recorded even when ctx is what ended the run.
	wctx := context.WithoutCancel(ctx)
	total.addError(cause.Error())
	if err := o.Tracker.Fail(wctx, run.ID, total.update()); err != nil && !errors.Is(err, ErrRunNotRunning) {
		logger.OrNop(o.Logger).Error("mark run failed", zap.String("run_uuid", run.UUID), zap.Error(err))
		return nil, errors.Join(cause, err)
	}
	row, err := o.Tracker.Get(wctx, run.ID)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return row, cause
}

// PrintSummary logs a finished run.
func PrintSummary(log *zap.Logger, run *models.ScraperRun) {
	if run == nil {
		return
	}
	log = logger.OrNop(log)
	duration := "-"
	if run.DurationMs != nil {
		duration = formatDuration(msDuration(*run.DurationMs))
	}
	log.Info("run summary",
		zap.String("run_uuid", run.RunUUID),
		zap.String("run_type", run.RunType),
		zap.String("status", run.Status),
		zap.String("duration", duration),
		zap.Int("markets", run.MarketsScraped),
		zap.Int("outcomes", run.MarketOutcomesScraped),
		zap.Int("comments", run.CommentsScraped),
		zap.Int("tokens", run.TokensProcessed),
		zap.Int("price_points", run.PriceDataPointsStored),
		zap.Int("users", run.UsersProcessed),
		zap.Int("positions", run.UserPositionsScraped),
		zap.Int("trades", run.UserTradesScraped),
		zap.Int("errors", run.ErrorCount))
}
