package gateway

import (
	"context"

	"polymarket-ingest/internal/client/polymarket/clob"
	polymarketdata "polymarket-ingest/internal/client/polymarket/data"
	polymarketgamma "polymarket-ingest/internal/client/polymarket/gamma"
	"polymarket-ingest/internal/ratelimit"
	"polymarket-ingest/internal/retry"
)

type GammaAPI interface {
	ListMarkets(ctx context.Context, params polymarketgamma.ListMarketsParams) ([]polymarketgamma.Market, error)
	ListComments(ctx context.Context, params polymarketgamma.ListCommentsParams) ([]polymarketgamma.Comment, error)
}

type ClobAPI interface {
	GetPriceHistory(ctx context.Context, params clob.PriceHistoryParams) ([]clob.PricePoint, error)
}

type DataAPI interface {
	GetPositions(ctx context.Context, params polymarketdata.PositionsParams) ([]polymarketdata.Position, error)
	GetTrades(ctx context.Context, params polymarketdata.TradesParams) ([]polymarketdata.Trade, error)
}

// Gateway is the only path to the upstream APIs. Every call is retried by
// Retry and every attempt holds a Governor permit of its rate class, so
// backoff sleeps never occupy a slot.
type Gateway struct {
	Gamma    GammaAPI
	Clob     ClobAPI
	Data     DataAPI
	Governor *ratelimit.Governor
	Retry    *retry.Executor
}

func (g *Gateway) ListMarkets(ctx context.Context, params polymarketgamma.ListMarketsParams) ([]polymarketgamma.Market, error) {
	return call(ctx, g, ratelimit.ClassGammaMarkets, "gamma.ListMarkets", func(ctx context.Context) ([]polymarketgamma.Market, error) {
		return g.Gamma.ListMarkets(ctx, params)
	})
}

func (g *Gateway) ListComments(ctx context.Context, params polymarketgamma.ListCommentsParams) ([]polymarketgamma.Comment, error) {
	return call(ctx, g, ratelimit.ClassGammaComments, "gamma.ListComments", func(ctx context.Context) ([]polymarketgamma.Comment, error) {
		return g.Gamma.ListComments(ctx, params)
	})
}

func (g *Gateway) GetPriceHistory(ctx context.Context, params clob.PriceHistoryParams) ([]clob.PricePoint, error) {
	return call(ctx, g, ratelimit.ClassClobPriceHistory, "clob.GetPriceHistory", func(ctx context.Context) ([]clob.PricePoint, error) {
		return g.Clob.GetPriceHistory(ctx, params)
	})
}

func (g *Gateway) GetPositions(ctx context.Context, params polymarketdata.PositionsParams) ([]polymarketdata.Position, error) {
	return call(ctx, g, ratelimit.ClassDataPositions, "data.GetPositions", func(ctx context.Context) ([]polymarketdata.Position, error) {
		return g.Data.GetPositions(ctx, params)
	})
}

func (g *Gateway) GetTrades(ctx context.Context, params polymarketdata.TradesParams) ([]polymarketdata.Trade, error) {
	return call(ctx, g, ratelimit.ClassDataTrades, "data.GetTrades", func(ctx context.Context) ([]polymarketdata.Trade, error) {
		return g.Data.GetTrades(ctx, params)
	})
}

func call[T any](ctx context.Context, g *Gateway, class ratelimit.Class, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, g.Retry, label, func(ctx context.Context) (T, error) {
		if g.Governor == nil {
			return fn(ctx)
		}
		return ratelimit.Run(ctx, g.Governor, class, fn)
	})
}
