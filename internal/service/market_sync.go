package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"polymarket-ingest/internal/checkpoint"
	polymarketgamma "polymarket-ingest/internal/client/polymarket/gamma"
	"polymarket-ingest/internal/logger"
	"polymarket-ingest/internal/metrics"
	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
)

type MarketSource interface {
	ListMarkets(ctx context.Context, params polymarketgamma.ListMarketsParams) ([]polymarketgamma.Market, error)
}

// MarketSyncService sweeps the whole gamma market list on every run and
// upserts each market with its events, tags and outcomes.
type MarketSyncService struct {
	Store       repository.MarketRepository
	Checkpoints *checkpoint.Store
	Source      MarketSource
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	BatchSize   int
	MaxErrors   int
	Now         func() time.Time
}

type marketPager struct {
	source MarketSource
	limit  int
}

func (p marketPager) FetchPage(ctx context.Context, offset int) (Page[int, polymarketgamma.Market], error) {
	items, err := p.source.ListMarkets(ctx, polymarketgamma.ListMarketsParams{
		Limit:      p.limit,
		Offset:     offset,
		IncludeTag: true,
	})
	if err != nil {
		return Page[int, polymarketgamma.Market]{}, err
	}
	return offsetPage(items, offset, p.limit), nil
}

func (s *MarketSyncService) Sync(ctx context.Context) (Result, error) {
	if s.Source == nil {
		return Result{}, fmt.Errorf("market source is nil")
	}
	log := logger.OrNop(s.Logger).With(zap.String("workflow", "markets"))
	limit := s.BatchSize
	if limit <= 0 {
		limit = 100
	}
	errs := NewErrorLog("markets", s.MaxErrors, log, s.Metrics)
	result := Result{}
	offset := 0

	_, err := Paginate(ctx, marketPager{source: s.Source, limit: limit}, 0,
		func(ctx context.Context, page Page[int, polymarketgamma.Market]) error {
			now := s.now()
			for _, item := range page.Items {
				if errs.Tripped() {
					break
				}
				if item.DecodeErr != nil {
					errs.Add(item.DecodeErr, "market %s", item.ID)
					continue
				}
				graph, err := buildMarketGraph(item, now)
				if err != nil {
					errs.Add(err, "market %s", item.ID)
					continue
				}
				if err := s.Store.SaveMarketGraph(ctx, graph); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					errs.Add(err, "market %s", item.ID)
					continue
				}
				result.Markets++
				result.Outcomes += len(graph.Outcomes)
				s.Metrics.AddRows("markets", 1)
				s.Metrics.AddRows("market_outcomes", len(graph.Outcomes))
			}
			offset = page.Next
			if s.Checkpoints != nil {
				stats := map[string]int{"markets": result.Markets, "outcomes": result.Outcomes}
				if err := s.Checkpoints.Advance(ctx, checkpoint.KeyMarkets, int64(offset), int64(result.Markets), stats); err != nil {
					log.Warn("save markets checkpoint failed", zap.Error(err))
				}
			}
			log.Debug("markets page stored", zap.Int("offset", offset), zap.Int("items", len(page.Items)))
			return nil
		}, errs.Tripped)
	if err != nil {
		if ctx.Err() != nil {
			errs.fill(&result)
			return result, ctx.Err()
		}
		// A failed page ends the sweep; what was stored so far stands.
		errs.Add(err, "markets page at offset %d", offset)
		if s.Checkpoints != nil {
			_ = s.Checkpoints.RecordError(ctx, checkpoint.KeyMarkets, err)
		}
	}
	errs.fill(&result)
	log.Info("markets synced", zap.Int("markets", result.Markets), zap.Int("outcomes", result.Outcomes), zap.Int("errors", result.ErrorCount))
	return result, nil
}

func (s *MarketSyncService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// buildMarketGraph maps one gamma market. Outcome text comes from the
// outcomes array at the token's index.
func buildMarketGraph(item polymarketgamma.Market, now time.Time) (repository.MarketGraph, error) {
	id := strings.TrimSpace(item.ID.String())
	if id == "" {
		return repository.MarketGraph{}, fmt.Errorf("market without id")
	}
	graph := repository.MarketGraph{
		Market: models.Market{
			ID:                id,
			ConditionID:       item.ConditionID,
			Slug:              strPtr(item.Slug),
			Question:          item.Question,
			Description:       strPtr(item.Description),
			Outcomes:          mustJSON([]string(item.Outcomes)),
			ClobTokenIDs:      mustJSON([]string(item.ClobTokenIDs)),
			Volume:            decimalPtr(item.Volume),
			Liquidity:         decimalPtr(item.Liquidity),
			Active:            item.Active,
			Closed:            item.Closed,
			Archived:          item.Archived,
			NegRisk:           item.NegRisk,
			StartDate:         item.StartDate.Ptr(),
			EndDate:           item.EndDate.Ptr(),
			ExternalCreatedAt: item.CreatedAt.Ptr(),
			ExternalUpdatedAt: item.UpdatedAt.Ptr(),
			LastSeenAt:        now,
			RawJSON:           rawJSON(item.Raw, item),
		},
	}

	seenEvents := map[string]struct{}{}
	for _, ev := range item.Events {
		evID := strings.TrimSpace(ev.ID.String())
		if evID == "" {
			continue
		}
		if _, ok := seenEvents[evID]; ok {
			continue
		}
		seenEvents[evID] = struct{}{}
		graph.Events = append(graph.Events, models.Event{
			ID:                evID,
			Slug:              strPtr(ev.Slug),
			Title:             ev.Title,
			Description:       strPtr(ev.Description),
			Active:            ev.Active,
			Closed:            ev.Closed,
			StartTime:         ev.StartDate.Ptr(),
			EndTime:           ev.EndDate.Ptr(),
			ExternalUpdatedAt: ev.UpdatedAt.Ptr(),
			LastSeenAt:        now,
			RawJSON:           mustJSON(ev),
		})
	}

	seenTags := map[string]struct{}{}
	for _, tag := range item.Tags {
		tagID := strings.TrimSpace(tag.ID.String())
		if tagID == "" {
			continue
		}
		if _, ok := seenTags[tagID]; ok {
			continue
		}
		seenTags[tagID] = struct{}{}
		graph.Tags = append(graph.Tags, models.Tag{
			ID:         tagID,
			Label:      tag.Label,
			Slug:       strPtr(tag.Slug),
			LastSeenAt: now,
			RawJSON:    mustJSON(tag),
		})
	}

	seenTokens := map[string]struct{}{}
	for i, tokenID := range item.ClobTokenIDs {
		tokenID = strings.TrimSpace(tokenID)
		if tokenID == "" {
			continue
		}
		if _, ok := seenTokens[tokenID]; ok {
			continue
		}
		seenTokens[tokenID] = struct{}{}
		text := ""
		if i < len(item.Outcomes) {
			text = item.Outcomes[i]
		}
		graph.Outcomes = append(graph.Outcomes, models.MarketOutcome{
			MarketID:     id,
			ClobTokenID:  tokenID,
			OutcomeText:  text,
			OutcomeIndex: i,
		})
	}
	return graph, nil
}
