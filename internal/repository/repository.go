package repository

import (
	"context"
	"time"

	"polymarket-ingest/internal/models"
)

// MarketGraph is one market with every entity it references.
type MarketGraph struct {
	Market   models.Market
	Events   []models.Event
	Tags     []models.Tag
	Outcomes []models.MarketOutcome
}

type CommentGraph struct {
	Comment models.Comment
	Author  *models.UserProfile
}

// PriceBatch is a flush of price rows together with every outcome whose
// fetch completed, including outcomes that produced no rows.
type PriceBatch struct {
	Rows       []models.TokenPrice
	OutcomeIDs []uint64
	ScrapedAt  time.Time
}

type OutcomeFilter struct {
	OnlyUnscraped bool
	OpenMarkets   bool
}

type MarketRepository interface {
	SaveMarketGraph(ctx context.Context, graph MarketGraph) error
	CountMarkets(ctx context.Context) (int64, error)
	CountOutcomes(ctx context.Context) (int64, error)
}

type CommentRepository interface {
	ListEventIDs(ctx context.Context) ([]string, error)
	SaveComment(ctx context.Context, graph CommentGraph) error
	UpsertCommentReaction(ctx context.Context, item *models.CommentReaction) error
}

type PriceRepository interface {
	ListOutcomeIDsForPrices(ctx context.Context, filter OutcomeFilter) ([]uint64, error)
	ListOutcomesByIDs(ctx context.Context, ids []uint64) ([]models.MarketOutcome, error)
	InsertPriceBatch(ctx context.Context, batch PriceBatch, chunkSize int) (int64, error)
}

type UserRepository interface {
	ListUserWallets(ctx context.Context) ([]string, error)
	ReplaceUserPositions(ctx context.Context, wallet string, items []models.UserPosition) error
	LatestTradeTimestamp(ctx context.Context, wallet string) (*time.Time, error)
	InsertUserTrades(ctx context.Context, items []models.UserTrade) (int64, error)
}

type CheckpointRepository interface {
	GetCheckpoint(ctx context.Context, key string) (*models.SyncCheckpoint, error)
	SaveCheckpoint(ctx context.Context, item *models.SyncCheckpoint) error
	DeleteCheckpoints(ctx context.Context, keyPrefix string) (int64, error)
}

type RunRepository interface {
	CreateRun(ctx context.Context, item *models.ScraperRun) error
	GetRun(ctx context.Context, id uint64) (*models.ScraperRun, error)
	UpdateRun(ctx context.Context, id uint64, updates map[string]any) error
	// FinalizeRun applies updates only while the run is still running and
	// reports whether it did.
	FinalizeRun(ctx context.Context, id uint64, updates map[string]any) (bool, error)
	ListRecentRuns(ctx context.Context, limit int) ([]models.ScraperRun, error)
}

type IngestRepository interface {
	MarketRepository
	CommentRepository
	PriceRepository
	UserRepository
	CheckpointRepository
	RunRepository
}
