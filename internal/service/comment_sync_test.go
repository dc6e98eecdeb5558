package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"polymarket-ingest/internal/checkpoint"
	"polymarket-ingest/internal/client/polymarket"
	polymarketgamma "polymarket-ingest/internal/client/polymarket/gamma"
	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
	gormrepository "polymarket-ingest/internal/repository/gorm"
)

func seedEvents(t *testing.T, store *gormrepository.Store, ids ...string) {
	t.Helper()
	now := time.Now().UTC()
	graph := repository.MarketGraph{Market: models.Market{ID: "m-events", Question: "q", LastSeenAt: now}}
	for _, id := range ids {
		graph.Events = append(graph.Events, models.Event{ID: id, Title: id, LastSeenAt: now})
	}
	require.NoError(t, store.SaveMarketGraph(context.Background(), graph))
}

func TestCommentSync_FullPageThenEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedEvents(t, store, "7")
	gamma := &fakeGamma{comments: map[int64][]polymarketgamma.Comment{7: gammaComments(50, "c")}}
	svc := &CommentSyncService{Store: store, Checkpoints: newCheckpoints(store), Source: gamma, BatchSize: 50, Workers: 2}

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Comments)

	calls := gamma.commentCallsFor(7)
	require.Len(t, calls, 2)
	assert.Equal(t, 0, calls[0].Offset)
	assert.Equal(t, 50, calls[1].Offset)
	assert.Equal(t, "Event", calls[0].ParentEntityType)

	state, err := svc.Checkpoints.Get(ctx, checkpoint.CommentKey("7"))
	require.NoError(t, err)
	assert.EqualValues(t, 50, state.Offset)
	assert.EqualValues(t, 50, state.TotalFetched)
	assert.True(t, state.Processed)
}

func TestCommentSync_ResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedEvents(t, store, "7")
	cps := newCheckpoints(store)
	require.NoError(t, cps.Advance(ctx, checkpoint.CommentKey("7"), 50, 50, nil))

	gamma := &fakeGamma{comments: map[int64][]polymarketgamma.Comment{7: gammaComments(70, "c")}}
	svc := &CommentSyncService{Store: store, Checkpoints: cps, Source: gamma, BatchSize: 50}

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Comments)

	calls := gamma.commentCallsFor(7)
	require.Len(t, calls, 1)
	assert.Equal(t, 50, calls[0].Offset)

	state, err := cps.Get(ctx, checkpoint.CommentKey("7"))
	require.NoError(t, err)
	assert.EqualValues(t, 70, state.Offset)
	assert.EqualValues(t, 70, state.TotalFetched)
}

func TestCommentSync_SkipsNonNumericEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedEvents(t, store, "8", "slug-event")
	gamma := &fakeGamma{comments: map[int64][]polymarketgamma.Comment{8: gammaComments(1, "x")}}
	svc := &CommentSyncService{Store: store, Checkpoints: newCheckpoints(store), Source: gamma, BatchSize: 50}

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Comments)
	assert.Len(t, gamma.commentCalls, 1)
}

func TestCommentSync_AuthorsAndReactions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedEvents(t, store, "9")
	comment := polymarketgamma.Comment{
		ID:              "c1",
		Body:            "reply before parent",
		ParentCommentID: "c0",
		UserAddress:     "0xbase",
		Profile:         &polymarketgamma.Profile{Name: "alice", ProxyWallet: "0xproxy"},
		Reactions: []polymarketgamma.Reaction{
			{ID: "r1", ReactionType: "HEART", UserAddress: "0xu"},
			{ID: "r2", UserAddress: "0xu"},
		},
	}
	gamma := &fakeGamma{comments: map[int64][]polymarketgamma.Comment{9: {comment}}}
	svc := &CommentSyncService{Store: store, Checkpoints: newCheckpoints(store), Source: gamma, BatchSize: 50}

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Comments)

	wallets, err := store.ListUserWallets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xproxy"}, wallets)
}

func countComments(t *testing.T, store *gormrepository.Store) int64 {
	t.Helper()
	var n int64
	require.NoError(t, store.InTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Model(&models.Comment{}).Count(&n).Error
	}))
	return n
}

func TestCommentSync_MalformedRecordDoesNotBlockCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedEvents(t, store, "7")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":"c1","body":"first"},
			{"id":"c2","body":"second","createdAt":"last tuesday"},
			{"id":"c3","body":"third"}
		]`))
	}))
	defer srv.Close()

	cps := newCheckpoints(store)
	svc := &CommentSyncService{Store: store, Checkpoints: cps, Source: polymarketgamma.NewClient(srv.Client(), srv.URL), BatchSize: 3}
	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Comments)
	require.Equal(t, 1, res.ErrorCount)
	assert.Contains(t, res.Errors[0], "comment c2")
	assert.EqualValues(t, 2, countComments(t, store))

	state, err := cps.Get(ctx, checkpoint.CommentKey("7"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, state.Offset)
	assert.True(t, state.Processed)
}

func TestCommentSync_StopsMidPageOnceTripped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedEvents(t, store, "7")
	page := []polymarketgamma.Comment{{ID: ""}, {ID: " "}, {ID: "c1"}, {ID: "c2"}}
	gamma := &fakeGamma{comments: map[int64][]polymarketgamma.Comment{7: page}}
	cps := newCheckpoints(store)
	svc := &CommentSyncService{Store: store, Checkpoints: cps, Source: gamma, BatchSize: 10, MaxErrors: 1}

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.Tripped)
	assert.Equal(t, 2, res.ErrorCount)
	assert.Zero(t, res.Comments)
	assert.Zero(t, countComments(t, store))

	state, err := cps.Get(ctx, checkpoint.CommentKey("7"))
	require.NoError(t, err)
	assert.Zero(t, state.Offset, "unsaved page is fetched again next run")
	assert.False(t, state.Processed)
}

func TestBuildCommentGraph(t *testing.T) {
	now := time.Now().UTC()
	_, err := buildCommentGraph(1, polymarketgamma.Comment{}, now)
	assert.Error(t, err)

	graph, err := buildCommentGraph(1, polymarketgamma.Comment{ID: polymarket.ID("5"), UserAddress: "0xa"}, now)
	require.NoError(t, err)
	assert.Equal(t, "1", graph.Comment.EventID)
	assert.Nil(t, graph.Comment.ParentCommentID)
	assert.Nil(t, graph.Author)

	_, ok := buildReaction("5", polymarketgamma.Reaction{ID: "r", ReactionType: "LIKE"}, now)
	assert.False(t, ok)
}
