package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/service"
)

type runFunc func(a *app, ctx context.Context) (*models.ScraperRun, error)

// withApp boots the app for one command and tears it down afterwards.
func withApp(opts *rootOptions, fn func(cmd *cobra.Command, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(*opts)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, a)
	}
}

func syncCommand(opts *rootOptions, use, short string, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app) error {
			return a.report(run(a, cmd.Context()))
		}),
	}
}

func priceHistoryCommand(opts *rootOptions) *cobra.Command {
	var resume bool
	cmd := &cobra.Command{
		Use:   "sync-price-history",
		Short: "Fetch full price history for every outcome",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app) error {
			return a.report(a.orchestrator.RunPriceHistory(cmd.Context(), resume))
		}),
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "only fetch outcomes that have never been priced")
	return cmd
}

func listRunsCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list-runs",
		Short: "Show the most recent runs",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app) error {
			runs, err := a.tracker.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

// report logs the run summary and turns a failed run into a command error.
func (a *app) report(run *models.ScraperRun, err error) error {
	service.PrintSummary(a.logger, run)
	if err != nil {
		return err
	}
	if run != nil && run.Status == models.RunStatusFailed {
		return fmt.Errorf("run %s failed", run.RunUUID)
	}
	return nil
}

func writeRuns(w io.Writer, runs []models.ScraperRun) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tSTARTED\tDURATION\tMARKETS\tCOMMENTS\tTOKENS\tPOINTS\tUSERS\tERRORS")
	for _, run := range runs {
		duration := "-"
		if run.DurationMs != nil {
			duration = (time.Duration(*run.DurationMs) * time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			run.ID,
			run.RunType,
			run.Status,
			run.StartTime.UTC().Format(time.RFC3339),
			duration,
			run.MarketsScraped,
			run.CommentsScraped,
			run.TokensProcessed,
			run.PriceDataPointsStored,
			run.UsersProcessed,
			run.ErrorCount,
		)
	}
	return tw.Flush()
}
