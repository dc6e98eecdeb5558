package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"polymarket-ingest/internal/client/polymarket/clob"
	"polymarket-ingest/internal/logger"
	"polymarket-ingest/internal/metrics"
	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
)

type PriceSource interface {
	GetPriceHistory(ctx context.Context, params clob.PriceHistoryParams) ([]clob.PricePoint, error)
}

// PriceHistorySyncService fetches per-token price series for stored
// outcomes and writes them in buffered, deduplicated batches.
type PriceHistorySyncService struct {
	Store            repository.PriceRepository
	Source           PriceSource
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
	PageSize         int
	FlushRows        int
	FlushTokens      int
	ChunkSize        int
	MaxErrors        int
	ProgressInterval time.Duration
	Now              func() time.Time
}

// PriceRequest is the per-token query shape of one sweep.
type PriceRequest struct {
	Interval string
	Fidelity int
	Since    *time.Time
}

// SyncHistory pulls full histories. With resume set, outcomes that already
// have a committed batch are skipped.
func (s *PriceHistorySyncService) SyncHistory(ctx context.Context, resume bool) (Result, error) {
	return s.sweep(ctx, "price-history",
		repository.OutcomeFilter{OnlyUnscraped: resume},
		PriceRequest{Interval: "max", Fidelity: 1})
}

// SyncRecent refreshes the last lookbackDays of every open market.
func (s *PriceHistorySyncService) SyncRecent(ctx context.Context, interval string, fidelity, lookbackDays int) (Result, error) {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	since := s.now().AddDate(0, 0, -lookbackDays)
	return s.sweep(ctx, "prices",
		repository.OutcomeFilter{OpenMarkets: true},
		PriceRequest{Interval: interval, Fidelity: fidelity, Since: &since})
}

type outcomePager struct {
	store    repository.PriceRepository
	ids      []uint64
	pageSize int
}

// FetchPage loads the next slice of the snapshotted id list.
func (p outcomePager) FetchPage(ctx context.Context, index int) (Page[int, models.MarketOutcome], error) {
	end := min(index+p.pageSize, len(p.ids))
	if index >= end {
		return Page[int, models.MarketOutcome]{Next: index, Done: true}, nil
	}
	items, err := p.store.ListOutcomesByIDs(ctx, p.ids[index:end])
	if err != nil {
		return Page[int, models.MarketOutcome]{}, fmt.Errorf("load outcomes %d-%d: %w", index, end, err)
	}
	return Page[int, models.MarketOutcome]{Items: items, Next: end, Done: end >= len(p.ids)}, nil
}

func (s *PriceHistorySyncService) sweep(ctx context.Context, workflow string, filter repository.OutcomeFilter, req PriceRequest) (result Result, err error) {
	if s.Source == nil {
		return Result{}, fmt.Errorf("price source is nil")
	}
	log := logger.OrNop(s.Logger).With(zap.String("workflow", workflow))
	ids, err := s.Store.ListOutcomeIDsForPrices(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("list outcomes: %w", err)
	}
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	log.Info("price sync started", zap.Int("tokens", len(ids)), zap.Bool("resume", filter.OnlyUnscraped), zap.String("interval", req.Interval))

	errs := NewErrorLog(workflow, s.MaxErrors, log, s.Metrics)
	buf := newPriceBuffer(s.FlushRows, s.FlushTokens)
	prog := newProgress(log, len(ids), s.ProgressInterval)

	defer func() {
		// Cancellation must not discard fetched rows.
		if ferr := s.flush(context.WithoutCancel(ctx), buf, &result, log); ferr != nil {
			errs.Add(ferr, "final price flush")
		}
		errs.fill(&result)
		log.Info("price sync finished",
			zap.Int("tokens", result.Tokens),
			zap.Int("points", result.PricePoints),
			zap.Int("errors", result.ErrorCount),
			zap.String("elapsed", formatDuration(prog.elapsed())))
	}()

	_, err = Paginate(ctx, outcomePager{store: s.Store, ids: ids, pageSize: pageSize}, 0,
		func(ctx context.Context, page Page[int, models.MarketOutcome]) error {
			for _, outcome := range page.Items {
				if errs.Tripped() {
					return nil
				}
				points, err := s.Source.GetPriceHistory(ctx, priceParams(outcome.ClobTokenID, req))
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					errs.Add(err, "token %s", outcome.ClobTokenID)
					continue
				}
				buf.add(outcome.ID, points)
				result.Tokens++
				if buf.due() {
					if err := s.flush(ctx, buf, &result, log); err != nil {
						if ctx.Err() != nil {
							return ctx.Err()
						}
						errs.Add(err, "price flush")
					}
				}
				prog.tick(result.Tokens, result.PricePoints+buf.pending())
			}
			return nil
		}, errs.Tripped)
	if err != nil && ctx.Err() == nil {
		// The outcome list itself could not be read.
		return result, err
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

func priceParams(tokenID string, req PriceRequest) clob.PriceHistoryParams {
	params := clob.PriceHistoryParams{
		TokenID:  tokenID,
		Interval: req.Interval,
		Fidelity: req.Fidelity,
	}
	if req.Since != nil {
		ts := req.Since.Unix()
		params.StartTs = &ts
	}
	return params
}

func (s *PriceHistorySyncService) flush(ctx context.Context, buf *priceBuffer, result *Result, log *zap.Logger) error {
	if buf.empty() {
		return nil
	}
	batch := buf.batch(s.now())
	inserted, err := s.Store.InsertPriceBatch(ctx, batch, s.ChunkSize)
	if err != nil {
		// Keep the rows for the exit flush when only the context ended.
		if ctx.Err() == nil {
			buf.reset()
		}
		return fmt.Errorf("store %d price rows for %d tokens: %w", len(batch.Rows), len(batch.OutcomeIDs), err)
	}
	buf.reset()
	result.PricePoints += int(inserted)
	s.Metrics.AddRows("token_prices", int(inserted))
	if inserted == 0 && len(batch.Rows) > 0 {
		log.Info("price batch inserted nothing, likely already stored", zap.Int("rows", len(batch.Rows)), zap.Int("tokens", len(batch.OutcomeIDs)))
	} else {
		log.Debug("price batch stored", zap.Int64("inserted", inserted), zap.Int("rows", len(batch.Rows)), zap.Int("tokens", len(batch.OutcomeIDs)))
	}
	return nil
}

func (s *PriceHistorySyncService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// priceBuffer holds fetched rows until a flush threshold is reached. Every
// outcome added is marked scraped on flush, including ones with no points.
type priceBuffer struct {
	maxRows    int
	maxTokens  int
	rows       []models.TokenPrice
	outcomeIDs []uint64
}

func newPriceBuffer(maxRows, maxTokens int) *priceBuffer {
	if maxRows <= 0 {
		maxRows = 10000
	}
	if maxTokens <= 0 {
		maxTokens = 100
	}
	return &priceBuffer{maxRows: maxRows, maxTokens: maxTokens}
}

func (b *priceBuffer) add(outcomeID uint64, points []clob.PricePoint) {
	for _, p := range points {
		b.rows = append(b.rows, models.TokenPrice{
			MarketOutcomeID: outcomeID,
			Timestamp:       p.TS.UTC(),
			Price:           p.Price,
		})
	}
	b.outcomeIDs = append(b.outcomeIDs, outcomeID)
}

func (b *priceBuffer) due() bool {
	return len(b.rows) >= b.maxRows || len(b.outcomeIDs) >= b.maxTokens
}

func (b *priceBuffer) empty() bool {
	return len(b.outcomeIDs) == 0
}

func (b *priceBuffer) pending() int {
	return len(b.rows)
}

func (b *priceBuffer) batch(now time.Time) repository.PriceBatch {
	return repository.PriceBatch{Rows: b.rows, OutcomeIDs: b.outcomeIDs, ScrapedAt: now}
}

func (b *priceBuffer) reset() {
	b.rows = nil
	b.outcomeIDs = nil
}
