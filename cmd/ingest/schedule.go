package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cronrunner "polymarket-ingest/internal/cron"
	"polymarket-ingest/internal/handler"
	"polymarket-ingest/internal/service"
)

func scheduleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run sync-all on the configured cron and serve health, metrics and run history",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app) error {
			return a.schedule(cmd.Context())
		}),
	}
}

func (a *app) schedule(ctx context.Context) error {
	log := a.logger

	if strings.EqualFold(a.cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	health := &handler.HealthHandler{DB: a.db.Gorm, Gatherer: a.registry}
	health.Register(engine)
	runs := &handler.RunsHandler{Runs: a.tracker, Logger: log}
	runs.Register(engine)

	srv := &http.Server{
		Addr:              a.cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runner := cronrunner.New(log, ctx)
	if _, err := runner.Add(a.cfg.Cron.SyncAll, func(ctx context.Context) {
		run, err := a.orchestrator.RunAll(ctx)
		service.PrintSummary(log, run)
		if err != nil {
			log.Warn("scheduled sync-all failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register sync-all schedule %q: %w", a.cfg.Cron.SyncAll, err)
	}
	runner.Start()
	defer runner.Stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", zap.Error(err))
	}
	log.Info("schedule stopped")
	return nil
}
