package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	polymarketdata "polymarket-ingest/internal/client/polymarket/data"
	"polymarket-ingest/internal/logger"
	"polymarket-ingest/internal/metrics"
	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
)

// PositionSyncService replaces each user's stored positions with the
// current upstream snapshot.
type PositionSyncService struct {
	Store     repository.UserRepository
	Source    UserSource
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	PageSize  int
	Workers   int
	MaxErrors int
	Now       func() time.Time
}

// positionPager reads a single page: the endpoint is queried once per user
// sorted by current value.
type positionPager struct {
	source UserSource
	wallet string
	limit  int
}

func (p positionPager) FetchPage(ctx context.Context, offset int) (Page[int, polymarketdata.Position], error) {
	items, err := p.source.GetPositions(ctx, polymarketdata.PositionsParams{
		User:          p.wallet,
		SizeThreshold: "0",
		Redeemable:    false,
		Mergeable:     false,
		Limit:         p.limit,
		Offset:        offset,
		SortBy:        "CURRENT",
		SortDirection: "DESC",
	})
	if err != nil {
		return Page[int, polymarketdata.Position]{}, err
	}
	return Page[int, polymarketdata.Position]{Items: items, Next: offset + len(items), Done: true}, nil
}

func (s *PositionSyncService) Sync(ctx context.Context) (Result, error) {
	if s.Source == nil {
		return Result{}, fmt.Errorf("position source is nil")
	}
	log := logger.OrNop(s.Logger).With(zap.String("workflow", "positions"))
	limit := s.PageSize
	if limit <= 0 {
		limit = 500
	}
	errs := NewErrorLog("positions", s.MaxErrors, log, s.Metrics)
	var result Result
	var stored atomic.Int64

	users, err := forEachUser(ctx, s.Store, s.Workers, errs, log, func(ctx context.Context, wallet string) error {
		_, err := Paginate(ctx, positionPager{source: s.Source, wallet: wallet, limit: limit}, 0,
			func(ctx context.Context, page Page[int, polymarketdata.Position]) error {
				now := s.now()
				items := make([]models.UserPosition, 0, len(page.Items))
				for _, p := range page.Items {
					if p.DecodeErr != nil {
						errs.Add(p.DecodeErr, "position %s asset %s", wallet, p.Asset)
						continue
					}
					items = append(items, mapPosition(wallet, p, now))
				}
				if err := s.Store.ReplaceUserPositions(ctx, wallet, items); err != nil {
					return fmt.Errorf("replace positions: %w", err)
				}
				stored.Add(int64(len(items)))
				s.Metrics.AddRows("user_positions", len(items))
				return nil
			}, nil)
		return err
	})
	if err != nil {
		return result, err
	}
	result.Users = users
	result.Positions = int(stored.Load())
	errs.fill(&result)
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	log.Info("positions synced", zap.Int("users", result.Users), zap.Int("positions", result.Positions), zap.Int("errors", result.ErrorCount))
	return result, nil
}

func mapPosition(wallet string, p polymarketdata.Position, now time.Time) models.UserPosition {
	return models.UserPosition{
		ProxyWallet:        wallet,
		Asset:              p.Asset,
		ConditionID:        p.ConditionID,
		Size:               p.Size.Decimal,
		AvgPrice:           p.AvgPrice.Decimal,
		InitialValue:       p.InitialValue.Decimal,
		CurrentValue:       p.CurrentValue.Decimal,
		CashPnl:            p.CashPnl.Decimal,
		PercentPnl:         p.PercentPnl.Decimal,
		TotalBought:        p.TotalBought.Decimal,
		RealizedPnl:        p.RealizedPnl.Decimal,
		PercentRealizedPnl: p.PercentRealizedPnl.Decimal,
		CurPrice:           p.CurPrice.Decimal,
		Redeemable:         p.Redeemable,
		Mergeable:          p.Mergeable,
		NegativeRisk:       p.NegativeRisk,
		Title:              p.Title,
		Slug:               p.Slug,
		Icon:               p.Icon,
		EventSlug:          p.EventSlug,
		Outcome:            p.Outcome,
		OutcomeIndex:       p.OutcomeIndex,
		OppositeOutcome:    p.OppositeOutcome,
		OppositeAsset:      p.OppositeAsset,
		EndDate:            p.EndDate.Ptr(),
		ScrapedAt:          now,
	}
}

func (s *PositionSyncService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
