package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"polymarket-ingest/internal/logger"
	"polymarket-ingest/internal/metrics"
	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
)

var ErrRunNotRunning = errors.New("run is not running")

// RunUpdate is a partial write of a run's counters. Nil fields are left
// untouched.
type RunUpdate struct {
	MarketsScraped        *int
	MarketOutcomesScraped *int
	CommentsScraped       *int
	TokensProcessed       *int
	PriceDataPointsStored *int
	UsersProcessed        *int
	UserPositionsScraped  *int
	UserTradesScraped     *int
	Errors                []string
	// ErrorCount defaults to len(Errors) when Errors is set.
	ErrorCount *int
}

type Run struct {
	ID        uint64
	UUID      string
	Type      string
	StartTime time.Time
}

type RunTracker struct {
	Store             repository.RunRepository
	Logger            *zap.Logger
	Metrics           *metrics.Metrics
	MaxRecordedErrors int
	Now               func() time.Time
}

func (t *RunTracker) Start(ctx context.Context, runType string) (*Run, error) {
	row := &models.ScraperRun{
		RunUUID:   uuid.NewString(),
		RunType:   runType,
		Status:    models.RunStatusRunning,
		StartTime: t.now(),
	}
	if err := t.Store.CreateRun(ctx, row); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	logger.OrNop(t.Logger).Info("run started", zap.Uint64("run_id", row.ID), zap.String("run_uuid", row.RunUUID), zap.String("run_type", runType))
	return &Run{ID: row.ID, UUID: row.RunUUID, Type: runType, StartTime: row.StartTime}, nil
}

func (t *RunTracker) Update(ctx context.Context, id uint64, u RunUpdate) error {
	updates := t.columns(u)
	if len(updates) == 0 {
		return nil
	}
	if err := t.Store.UpdateRun(ctx, id, updates); err != nil {
		return fmt.Errorf("update run %d: %w", id, err)
	}
	return nil
}

func (t *RunTracker) Complete(ctx context.Context, id uint64, u RunUpdate) error {
	return t.finalize(ctx, id, models.RunStatusCompleted, u)
}

func (t *RunTracker) Fail(ctx context.Context, id uint64, u RunUpdate) error {
	return t.finalize(ctx, id, models.RunStatusFailed, u)
}

func (t *RunTracker) Recent(ctx context.Context, limit int) ([]models.ScraperRun, error) {
	return t.Store.ListRecentRuns(ctx, limit)
}

func (t *RunTracker) Get(ctx context.Context, id uint64) (*models.ScraperRun, error) {
	return t.Store.GetRun(ctx, id)
}

// finalize writes the terminal status once; a second call for the same run
// returns ErrRunNotRunning.
func (t *RunTracker) finalize(ctx context.Context, id uint64, status string, u RunUpdate) error {
	row, err := t.Store.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("load run %d: %w", id, err)
	}
	if row == nil {
		return fmt.Errorf("run %d not found", id)
	}
	end := t.now()
	durationMs := end.Sub(row.StartTime).Milliseconds()
	updates := t.columns(u)
	updates["status"] = status
	updates["end_time"] = end
	updates["duration_ms"] = durationMs

	ok, err := t.Store.FinalizeRun(ctx, id, updates)
	if err != nil {
		return fmt.Errorf("finalize run %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("finalize run %d: %w", id, ErrRunNotRunning)
	}
	t.Metrics.IncRun(row.RunType, status)
	logger.OrNop(t.Logger).Info("run finished",
		zap.Uint64("run_id", id),
		zap.String("run_uuid", row.RunUUID),
		zap.String("status", status),
		zap.Int64("duration_ms", durationMs))
	return nil
}

func (t *RunTracker) columns(u RunUpdate) map[string]any {
	updates := map[string]any{}
	set := func(col string, v *int) {
		if v != nil {
			updates[col] = *v
		}
	}
	set("markets_scraped", u.MarketsScraped)
	set("market_outcomes_scraped", u.MarketOutcomesScraped)
	set("comments_scraped", u.CommentsScraped)
	set("tokens_processed", u.TokensProcessed)
	set("price_data_points_stored", u.PriceDataPointsStored)
	set("users_processed", u.UsersProcessed)
	set("user_positions_scraped", u.UserPositionsScraped)
	set("user_trades_scraped", u.UserTradesScraped)
	if u.Errors != nil {
		keep := t.MaxRecordedErrors
		if keep <= 0 {
			keep = 100
		}
		recorded := u.Errors
		if len(recorded) > keep {
			recorded = recorded[:keep]
		}
		if len(recorded) > 0 {
			updates["errors"] = strings.Join(recorded, "\n")
		}
		updates["error_count"] = len(u.Errors)
	}
	set("error_count", u.ErrorCount)
	return updates
}

func (t *RunTracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}
