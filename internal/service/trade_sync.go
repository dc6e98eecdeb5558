package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	polymarketdata "polymarket-ingest/internal/client/polymarket/data"
	"polymarket-ingest/internal/logger"
	"polymarket-ingest/internal/metrics"
	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
)

// TradeSyncService appends trades newer than the latest one already stored
// for each user.
type TradeSyncService struct {
	Store     repository.UserRepository
	Source    UserSource
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	PageSize  int
	Workers   int
	MaxErrors int
	// BoundaryLookahead is how many pages are still read after the first
	// page that contained an already stored trade.
	BoundaryLookahead int
}

type tradeCursor struct {
	Offset        int
	Crossed       bool
	LookaheadLeft int
}

// tradePager yields only trades strictly newer than since. The upstream
// list is newest first, so once a page contains an older trade the rest of
// the history is known; a few look-ahead pages cover out-of-order rows.
type tradePager struct {
	source    UserSource
	wallet    string
	limit     int
	since     *time.Time
	lookahead int
}

func (p tradePager) FetchPage(ctx context.Context, c tradeCursor) (Page[tradeCursor, polymarketdata.Trade], error) {
	items, err := p.source.GetTrades(ctx, polymarketdata.TradesParams{
		User:      p.wallet,
		Limit:     p.limit,
		Offset:    c.Offset,
		TakerOnly: false,
	})
	if err != nil {
		return Page[tradeCursor, polymarketdata.Trade]{}, err
	}
	newer := make([]polymarketdata.Trade, 0, len(items))
	for _, t := range items {
		// Undecodable rows have no timestamp; pass them on so the sink
		// records them instead of mistaking them for the stored boundary.
		if t.DecodeErr != nil || p.since == nil || t.Timestamp.After(*p.since) {
			newer = append(newer, t)
		}
	}

	next := tradeCursor{Offset: c.Offset + len(items), Crossed: c.Crossed, LookaheadLeft: c.LookaheadLeft}
	done := len(items) < p.limit || len(items) == 0
	switch {
	case c.Crossed:
		next.LookaheadLeft--
		done = done || next.LookaheadLeft <= 0
	case len(newer) < len(items):
		next.Crossed = true
		next.LookaheadLeft = p.lookahead
		done = done || p.lookahead <= 0
	}
	return Page[tradeCursor, polymarketdata.Trade]{Items: newer, Next: next, Done: done}, nil
}

func (s *TradeSyncService) Sync(ctx context.Context) (Result, error) {
	if s.Source == nil {
		return Result{}, fmt.Errorf("trade source is nil")
	}
	log := logger.OrNop(s.Logger).With(zap.String("workflow", "trades"))
	limit := s.PageSize
	if limit <= 0 {
		limit = 500
	}
	lookahead := s.BoundaryLookahead
	if lookahead < 0 {
		lookahead = 0
	}
	errs := NewErrorLog("trades", s.MaxErrors, log, s.Metrics)
	var inserted atomic.Int64

	users, err := forEachUser(ctx, s.Store, s.Workers, errs, log, func(ctx context.Context, wallet string) error {
		since, err := s.Store.LatestTradeTimestamp(ctx, wallet)
		if err != nil {
			return fmt.Errorf("latest trade: %w", err)
		}
		pager := tradePager{source: s.Source, wallet: wallet, limit: limit, since: since, lookahead: lookahead}
		_, err = Paginate(ctx, pager, tradeCursor{},
			func(ctx context.Context, page Page[tradeCursor, polymarketdata.Trade]) error {
				items := make([]models.UserTrade, 0, len(page.Items))
				for _, t := range page.Items {
					if t.DecodeErr != nil {
						errs.Add(t.DecodeErr, "trade %s tx %s", wallet, t.TransactionHash)
						continue
					}
					if strings.TrimSpace(t.TransactionHash) == "" {
						log.Debug("trade without transaction hash skipped", zap.String("user", wallet))
						continue
					}
					items = append(items, mapTrade(wallet, t))
				}
				n, err := s.Store.InsertUserTrades(ctx, items)
				if err != nil {
					return fmt.Errorf("insert trades: %w", err)
				}
				inserted.Add(n)
				s.Metrics.AddRows("user_trades", int(n))
				return nil
			}, errs.Tripped)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	result := Result{Users: users, Trades: int(inserted.Load())}
	errs.fill(&result)
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	log.Info("trades synced", zap.Int("users", result.Users), zap.Int("trades", result.Trades), zap.Int("errors", result.ErrorCount))
	return result, nil
}

func mapTrade(wallet string, t polymarketdata.Trade) models.UserTrade {
	return models.UserTrade{
		ProxyWallet:     wallet,
		Side:            strings.ToUpper(strings.TrimSpace(t.Side)),
		Asset:           t.Asset,
		ConditionID:     t.ConditionID,
		Size:            t.Size.Decimal,
		Price:           t.Price.Decimal,
		Timestamp:       t.Timestamp.UTC(),
		TransactionHash: t.TransactionHash,
		Title:           t.Title,
		Slug:            t.Slug,
		Icon:            t.Icon,
		EventSlug:       t.EventSlug,
		Outcome:         t.Outcome,
		OutcomeIndex:    t.OutcomeIndex,
	}
}
