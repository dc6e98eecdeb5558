package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"polymarket-ingest/internal/models"
)

type fakeRuns struct {
	runs      []models.ScraperRun
	err       error
	lastLimit int
}

func (f *fakeRuns) Recent(ctx context.Context, limit int) ([]models.ScraperRun, error) {
	f.lastLimit = limit
	return f.runs, f.err
}

func (f *fakeRuns) Get(ctx context.Context, id uint64) (*models.ScraperRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, nil
}

func runsEngine(h *RunsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	return r
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func decode(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestListRuns(t *testing.T) {
	runs := &fakeRuns{runs: []models.ScraperRun{
		{ID: 2, RunUUID: "b", RunType: models.RunTypeAll, Status: models.RunStatusCompleted, StartTime: time.Now()},
		{ID: 1, RunUUID: "a", RunType: models.RunTypeMarkets, Status: models.RunStatusFailed, StartTime: time.Now()},
	}}
	r := runsEngine(&RunsHandler{Runs: runs})

	w := serve(r, "/api/runs?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w.Body.Bytes())
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, 5, runs.lastLimit)
	assert.EqualValues(t, 2, env.Meta["count"])

	var got []models.ScraperRun
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].RunUUID)

	serve(r, "/api/runs")
	assert.Equal(t, 10, runs.lastLimit)
}

func TestGetRun(t *testing.T) {
	runs := &fakeRuns{runs: []models.ScraperRun{{ID: 7, RunUUID: "x", Status: models.RunStatusRunning}}}
	r := runsEngine(&RunsHandler{Runs: runs})

	w := serve(r, "/api/runs/7")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.ScraperRun
	require.NoError(t, json.Unmarshal(decode(t, w.Body.Bytes()).Data, &got))
	assert.Equal(t, "x", got.RunUUID)

	assert.Equal(t, http.StatusNotFound, serve(r, "/api/runs/8").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, "/api/runs/abc").Code)
}

func TestRunsErrors(t *testing.T) {
	r := runsEngine(&RunsHandler{Runs: &fakeRuns{err: errors.New("db down")}, Logger: zap.NewNop()})
	w := serve(r, "/api/runs")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "db down", decode(t, w.Body.Bytes()).Message)

	r = runsEngine(&RunsHandler{})
	assert.Equal(t, http.StatusInternalServerError, serve(r, "/api/runs/1").Code)
}
