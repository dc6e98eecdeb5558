package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-ingest/internal/models"
)

func TestRunTracker_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := &RunTracker{Store: store, Now: func() time.Time { return clock }}

	run, err := tracker.Start(ctx, models.RunTypeMarkets)
	require.NoError(t, err)
	assert.NotEmpty(t, run.UUID)

	require.NoError(t, tracker.Update(ctx, run.ID, RunUpdate{MarketsScraped: intPtr(3)}))
	require.NoError(t, tracker.Update(ctx, run.ID, RunUpdate{CommentsScraped: intPtr(4)}))

	clock = clock.Add(90 * time.Second)
	require.NoError(t, tracker.Complete(ctx, run.ID, RunUpdate{Errors: []string{"a", "b"}}))

	err = tracker.Fail(ctx, run.ID, RunUpdate{})
	assert.ErrorIs(t, err, ErrRunNotRunning)

	row, err := tracker.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, row.Status)
	assert.Equal(t, 3, row.MarketsScraped)
	assert.Equal(t, 4, row.CommentsScraped)
	require.NotNil(t, row.DurationMs)
	assert.EqualValues(t, 90000, *row.DurationMs)
	require.NotNil(t, row.Errors)
	assert.Equal(t, "a\nb", *row.Errors)
	assert.Equal(t, 2, row.ErrorCount)
}

func TestRunTracker_ErrorsCapped(t *testing.T) {
	tracker := &RunTracker{MaxRecordedErrors: 2}
	cols := tracker.columns(RunUpdate{Errors: []string{"1", "2", "3"}, ErrorCount: intPtr(250)})
	assert.Equal(t, "1\n2", cols["errors"])
	assert.Equal(t, 250, cols["error_count"])

	cols = tracker.columns(RunUpdate{})
	assert.Empty(t, cols)
}

func TestRunTracker_Recent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := &RunTracker{Store: store, Now: func() time.Time { return clock }}
	for _, rt := range []string{models.RunTypeMarkets, models.RunTypeComments, models.RunTypeAll} {
		_, err := tracker.Start(ctx, rt)
		require.NoError(t, err)
		clock = clock.Add(time.Minute)
	}
	runs, err := tracker.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, models.RunTypeAll, runs[0].RunType)
}

func TestOrchestrator_NonFinalStageErrorContinues(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	o := &Orchestrator{Tracker: &RunTracker{Store: store}}
	calls := 0
	run, err := o.runStages(ctx, models.RunTypeAll, []stage{
		{name: "first", run: func(context.Context) (Result, error) {
			calls++
			return Result{Markets: 2}, errors.New("enumerate failed")
		}},
		{name: "second", run: func(context.Context) (Result, error) {
			calls++
			return Result{Comments: 5, Errors: []string{"item"}, ErrorCount: 1}, nil
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.MarketsScraped)
	assert.Equal(t, 5, run.CommentsScraped)
	assert.Equal(t, 2, run.ErrorCount)
	require.NotNil(t, run.Errors)
	assert.True(t, strings.HasPrefix(*run.Errors, "first: enumerate failed"))
}

func TestOrchestrator_FinalStageErrorFailsRun(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	o := &Orchestrator{Tracker: &RunTracker{Store: store}}
	boom := errors.New("boom")
	run, err := o.runStages(ctx, models.RunTypeMarkets, []stage{
		{name: "markets", run: func(context.Context) (Result, error) { return Result{Markets: 1}, boom }},
	})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, 1, run.MarketsScraped)
	assert.NotNil(t, run.EndTime)
}

func TestOrchestrator_CancelledContextFailsRun(t *testing.T) {
	store := newTestStore(t)
	o := &Orchestrator{Tracker: &RunTracker{Store: store}}
	ctx, cancel := context.WithCancel(context.Background())
	second := false
	run, err := o.runStages(ctx, models.RunTypeAll, []stage{
		{name: "first", run: func(context.Context) (Result, error) {
			cancel()
			return Result{}, nil
		}},
		{name: "second", run: func(context.Context) (Result, error) {
			second = true
			return Result{}, nil
		}},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, second)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusFailed, run.Status)
}

func TestOrchestrator_RunAllEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cps := newCheckpoints(store)
	m := gammaMarket("1", "tokA", "tokB")
	gamma := &fakeGamma{markets: marketList(m)}
	gamma.comments = map[int64][]gammaComment{101: gammaComments(3, "c")}
	fake := &fakeClob{}
	o := &Orchestrator{
		Tracker:  &RunTracker{Store: store},
		Markets:  &MarketSyncService{Store: store, Checkpoints: cps, Source: gamma},
		Comments: &CommentSyncService{Store: store, Checkpoints: cps, Source: gamma},
		Prices:   &PriceHistorySyncService{Store: store, Source: fake},
	}

	run, err := o.RunAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, models.RunTypeAll, run.RunType)
	assert.Equal(t, 1, run.MarketsScraped)
	assert.Equal(t, 2, run.MarketOutcomesScraped)
	assert.Equal(t, 3, run.CommentsScraped)
	assert.Equal(t, 2, run.TokensProcessed)
	assert.Len(t, fake.calls, 2)

	PrintSummary(nil, run)
}
