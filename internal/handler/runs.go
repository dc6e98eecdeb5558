package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"polymarket-ingest/internal/models"
)

// RunReader is the read side of the run tracker.
type RunReader interface {
	Recent(ctx context.Context, limit int) ([]models.ScraperRun, error)
	Get(ctx context.Context, id uint64) (*models.ScraperRun, error)
}

type RunsHandler struct {
	Runs   RunReader
	Logger *zap.Logger
}

func (h *RunsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/runs")
	group.GET("", h.listRuns)
	group.GET("/:id", h.getRun)
}

func (h *RunsHandler) listRuns(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 10)
	runs, err := h.Runs.Recent(c.Request.Context(), limit)
	if err != nil {
		internalError(c, h.Logger, "list runs failed", err)
		return
	}
	Ok(c, runs, map[string]any{"limit": limit, "count": len(runs)})
}

func (h *RunsHandler) getRun(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid run id", nil)
		return
	}
	run, err := h.Runs.Get(c.Request.Context(), id)
	if err != nil {
		internalError(c, h.Logger, "get run failed", err, zap.Uint64("id", id))
		return
	}
	if run == nil {
		Error(c, http.StatusNotFound, "run not found", nil)
		return
	}
	Ok(c, run, nil)
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}
