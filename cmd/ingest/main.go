package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

const programName = "ingest"

type rootOptions struct {
	configPath string
	envOnly    bool
	verbose    bool
}

func defaultOptions() rootOptions {
	cfgPath := os.Getenv("PM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if raw := os.Getenv("PM_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
	}
	return rootOptions{configPath: cfgPath, envOnly: envOnly}
}

func newRootCommand() *cobra.Command {
	opts := defaultOptions()
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Polymarket ingestion engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to config file (PM_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&opts.envOnly, "env-only", opts.envOnly, "read configuration from the environment only (PM_ENV_ONLY)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		syncCommand(&opts, "sync-all", "Run markets, comments, price history and optional user sync", (*app).runAll),
		syncCommand(&opts, "sync-markets", "Sync markets with their events, tags and outcomes", (*app).runMarkets),
		syncCommand(&opts, "sync-comments", "Sync comments for every stored event", (*app).runComments),
		syncCommand(&opts, "sync-prices", "Refresh recent prices for open markets", (*app).runPrices),
		priceHistoryCommand(&opts),
		syncCommand(&opts, "sync-user-positions", "Replace positions for every known wallet", (*app).runPositions),
		syncCommand(&opts, "sync-user-trades", "Append new trades for every known wallet", (*app).runTrades),
		listRunsCommand(&opts),
		scheduleCommand(&opts),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
