package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-ingest/internal/client/polymarket/clob"
	"polymarket-ingest/internal/repository"
)

func TestPriceHistory_ResumeSkipsScraped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ids := seedOutcomes(t, store, 10)
	_, err := store.InsertPriceBatch(ctx, repository.PriceBatch{OutcomeIDs: ids[:3]}, 0)
	require.NoError(t, err)

	start := time.Unix(1700000000, 0).UTC()
	fake := &fakeClob{points: map[string][]clob.PricePoint{}}
	for i := 0; i < 10; i++ {
		fake.points["tok"+itoa(i)] = pricePoints(start, 2)
	}
	svc := &PriceHistorySyncService{Store: store, Source: fake, PageSize: 4, FlushTokens: 3}

	res, err := svc.SyncHistory(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Tokens)
	assert.Equal(t, 14, res.PricePoints)
	require.Len(t, fake.calls, 7)
	assert.Equal(t, "tok3", fake.calls[0].TokenID, "newest unscraped market first")
	assert.Equal(t, "max", fake.calls[0].Interval)
	assert.Equal(t, 1, fake.calls[0].Fidelity)
	assert.Nil(t, fake.calls[0].StartTs)

	pending, err := store.ListOutcomeIDsForPrices(ctx, repository.OutcomeFilter{OnlyUnscraped: true})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPriceHistory_DuplicatesAndEmptySeries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ids := seedOutcomes(t, store, 2)
	start := time.Unix(1700000000, 0).UTC()
	fake := &fakeClob{points: map[string][]clob.PricePoint{"tok0": pricePoints(start, 3)}}
	svc := &PriceHistorySyncService{Store: store, Source: fake}

	res, err := svc.SyncHistory(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tokens)
	assert.Equal(t, 3, res.PricePoints)

	res, err = svc.SyncHistory(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.PricePoints, "second full sweep inserts nothing")

	outcomes, err := store.ListOutcomesByIDs(ctx, ids)
	require.NoError(t, err)
	for _, o := range outcomes {
		assert.NotNil(t, o.PricesScrapedAt, "token %s", o.ClobTokenID)
	}
	assert.EqualValues(t, 3, outcomes[0].PricesCount)
	assert.EqualValues(t, 0, outcomes[1].PricesCount)
}

func TestPriceHistory_FailedTokenStaysPending(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedOutcomes(t, store, 3)
	fake := &fakeClob{fail: map[string]bool{"tok1": true}}
	svc := &PriceHistorySyncService{Store: store, Source: fake}

	res, err := svc.SyncHistory(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tokens)
	assert.Equal(t, 1, res.ErrorCount)

	pending, err := store.ListOutcomeIDsForPrices(ctx, repository.OutcomeFilter{OnlyUnscraped: true})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPriceHistory_CircuitBreaker(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedOutcomes(t, store, 6)
	fake := &fakeClob{fail: map[string]bool{}}
	for i := 0; i < 6; i++ {
		fake.fail["tok"+itoa(i)] = true
	}
	svc := &PriceHistorySyncService{Store: store, Source: fake, MaxErrors: 2}

	res, err := svc.SyncHistory(ctx, false)
	require.NoError(t, err)
	assert.True(t, res.Tripped)
	assert.Equal(t, 3, res.ErrorCount)
	assert.Len(t, fake.calls, 3)
}

func TestPriceRefresh_UsesWindow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedOutcomes(t, store, 1)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeClob{}
	svc := &PriceHistorySyncService{Store: store, Source: fake, Now: func() time.Time { return now }}

	_, err := svc.SyncRecent(ctx, "1d", 60, 30)
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)
	require.NotNil(t, fake.calls[0].StartTs)
	assert.Equal(t, now.AddDate(0, 0, -30).Unix(), *fake.calls[0].StartTs)
	assert.Equal(t, "1d", fake.calls[0].Interval)
	assert.Equal(t, 60, fake.calls[0].Fidelity)
}

func TestPriceBuffer(t *testing.T) {
	buf := newPriceBuffer(3, 2)
	assert.True(t, buf.empty())
	buf.add(1, nil)
	assert.False(t, buf.empty())
	assert.False(t, buf.due())
	buf.add(2, pricePoints(time.Now(), 1))
	assert.True(t, buf.due(), "token threshold")

	batch := buf.batch(time.Now())
	assert.Equal(t, []uint64{1, 2}, batch.OutcomeIDs)
	assert.Len(t, batch.Rows, 1)
	buf.reset()
	assert.True(t, buf.empty())

	buf.add(3, pricePoints(time.Now(), 3))
	assert.True(t, buf.due(), "row threshold")
}
