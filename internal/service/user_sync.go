package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	polymarketdata "polymarket-ingest/internal/client/polymarket/data"
	"polymarket-ingest/internal/repository"
)

type UserSource interface {
	GetPositions(ctx context.Context, params polymarketdata.PositionsParams) ([]polymarketdata.Position, error)
	GetTrades(ctx context.Context, params polymarketdata.TradesParams) ([]polymarketdata.Trade, error)
}

// forEachUser runs fn for every known proxy wallet on a bounded pool. A
// failing wallet is recorded and the others continue. It returns the number
// of wallets fn completed for; only a failed wallet listing is an error.
func forEachUser(ctx context.Context, store repository.UserRepository, workers int, errs *ErrorLog, log *zap.Logger, fn func(ctx context.Context, wallet string) error) (int, error) {
	wallets, err := store.ListUserWallets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	log.Info("user sync started", zap.Int("users", len(wallets)))
	if workers <= 0 {
		workers = 5
	}

	done := make(chan struct{}, len(wallets))
	var g errgroup.Group
	g.SetLimit(workers)
	for _, wallet := range wallets {
		if errs.Tripped() || ctx.Err() != nil {
			break
		}
		wallet := wallet
		g.Go(func() error {
			if err := fn(ctx, wallet); err != nil {
				if ctx.Err() == nil {
					errs.Add(err, "user %s", wallet)
				}
				return nil
			}
			done <- struct{}{}
			return nil
		})
	}
	_ = g.Wait()
	close(done)
	return len(done), nil
}
