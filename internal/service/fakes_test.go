package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"polymarket-ingest/internal/checkpoint"
	"polymarket-ingest/internal/client/polymarket"
	"polymarket-ingest/internal/client/polymarket/clob"
	polymarketdata "polymarket-ingest/internal/client/polymarket/data"
	polymarketgamma "polymarket-ingest/internal/client/polymarket/gamma"
	"polymarket-ingest/internal/dbtest"
	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
	gormrepository "polymarket-ingest/internal/repository/gorm"
)

var errUpstream = errors.New("upstream unavailable")

func newTestStore(t *testing.T) *gormrepository.Store {
	t.Helper()
	return gormrepository.New(dbtest.Open(t).Gorm)
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return append([]T(nil), items[offset:end]...)
}

type fakeGamma struct {
	mu           sync.Mutex
	markets      []polymarketgamma.Market
	marketErrAt  map[int]bool
	marketCalls  []polymarketgamma.ListMarketsParams
	comments     map[int64][]polymarketgamma.Comment
	commentCalls []polymarketgamma.ListCommentsParams
}

func (f *fakeGamma) ListMarkets(_ context.Context, params polymarketgamma.ListMarketsParams) ([]polymarketgamma.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketCalls = append(f.marketCalls, params)
	if f.marketErrAt[params.Offset] {
		return nil, errUpstream
	}
	return window(f.markets, params.Offset, params.Limit), nil
}

func (f *fakeGamma) ListComments(_ context.Context, params polymarketgamma.ListCommentsParams) ([]polymarketgamma.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentCalls = append(f.commentCalls, params)
	return window(f.comments[params.ParentEntityID], params.Offset, params.Limit), nil
}

func (f *fakeGamma) commentCallsFor(eventID int64) []polymarketgamma.ListCommentsParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []polymarketgamma.ListCommentsParams
	for _, c := range f.commentCalls {
		if c.ParentEntityID == eventID {
			out = append(out, c)
		}
	}
	return out
}

type fakeClob struct {
	mu     sync.Mutex
	points map[string][]clob.PricePoint
	fail   map[string]bool
	calls  []clob.PriceHistoryParams
}

func (f *fakeClob) GetPriceHistory(_ context.Context, params clob.PriceHistoryParams) ([]clob.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	if f.fail[params.TokenID] {
		return nil, errUpstream
	}
	return f.points[params.TokenID], nil
}

type fakeData struct {
	mu            sync.Mutex
	positions     map[string][]polymarketdata.Position
	trades        map[string][]polymarketdata.Trade
	positionCalls int
	tradeCalls    []polymarketdata.TradesParams
}

func (f *fakeData) GetPositions(_ context.Context, params polymarketdata.PositionsParams) ([]polymarketdata.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positionCalls++
	return window(f.positions[params.User], params.Offset, params.Limit), nil
}

func (f *fakeData) GetTrades(_ context.Context, params polymarketdata.TradesParams) ([]polymarketdata.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tradeCalls = append(f.tradeCalls, params)
	return window(f.trades[params.User], params.Offset, params.Limit), nil
}

func gammaMarket(id string, tokens ...string) polymarketgamma.Market {
	outcomes := []string{"Yes", "No"}
	return polymarketgamma.Market{
		ID:           polymarket.ID(id),
		Question:     "Q" + id,
		ConditionID:  "0xc" + id,
		Outcomes:     polymarket.StringList(outcomes[:min(len(tokens), 2)]),
		ClobTokenIDs: polymarket.StringList(tokens),
		Active:       true,
		Events:       []polymarketgamma.Event{{ID: polymarket.ID("10" + id), Title: "E" + id}},
		Tags:         []polymarketgamma.Tag{{ID: "1", Label: "politics"}},
	}
}

func marketList(items ...polymarketgamma.Market) []polymarketgamma.Market {
	return items
}

func gammaComments(n int, prefix string) []polymarketgamma.Comment {
	out := make([]polymarketgamma.Comment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, polymarketgamma.Comment{
			ID:          polymarket.ID(prefix + strconv.Itoa(i)),
			Body:        "c",
			UserAddress: "0xbase" + strconv.Itoa(i%3),
		})
	}
	return out
}

// seedOutcomes stores n single-token markets, the newest first in listing
// order, and returns their outcome ids.
func seedOutcomes(t *testing.T, store *gormrepository.Store, n int) []uint64 {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < n; i++ {
		id := "m" + strconv.Itoa(i)
		graph := repository.MarketGraph{
			Market: models.Market{ID: id, Question: id, Active: true, LastSeenAt: base.Add(-time.Duration(i) * time.Minute)},
			Outcomes: []models.MarketOutcome{
				{MarketID: id, ClobTokenID: "tok" + strconv.Itoa(i), OutcomeText: "Yes"},
			},
		}
		require.NoError(t, store.SaveMarketGraph(ctx, graph))
	}
	ids, err := store.ListOutcomeIDsForPrices(ctx, repository.OutcomeFilter{})
	require.NoError(t, err)
	require.Len(t, ids, n)
	return ids
}

func seedWallets(t *testing.T, store *gormrepository.Store, wallets ...string) {
	t.Helper()
	now := time.Now().UTC()
	for i, w := range wallets {
		w := w
		require.NoError(t, store.SaveComment(context.Background(), repository.CommentGraph{
			Comment: models.Comment{ID: "seed" + strconv.Itoa(i), EventID: "1", LastSeenAt: now},
			Author:  &models.UserProfile{BaseAddress: "0xbase-" + w, ProxyWallet: &w, LastSeenAt: now},
		}))
	}
}

func pricePoints(start time.Time, n int) []clob.PricePoint {
	out := make([]clob.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, clob.PricePoint{TS: start.Add(time.Duration(i) * time.Hour), Price: decimal.NewFromFloat(0.5)})
	}
	return out
}

func newCheckpoints(store *gormrepository.Store) *checkpoint.Store {
	return checkpoint.New(store)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

type gammaComment = polymarketgamma.Comment
