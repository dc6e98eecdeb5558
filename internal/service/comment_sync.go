package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"polymarket-ingest/internal/checkpoint"
	polymarketgamma "polymarket-ingest/internal/client/polymarket/gamma"
	"polymarket-ingest/internal/logger"
	"polymarket-ingest/internal/metrics"
	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
)

type CommentSource interface {
	ListComments(ctx context.Context, params polymarketgamma.ListCommentsParams) ([]polymarketgamma.Comment, error)
}

// CommentSyncService pages through the comments of every stored event,
// resuming each event from its checkpoint offset.
type CommentSyncService struct {
	Store       repository.CommentRepository
	Checkpoints *checkpoint.Store
	Source      CommentSource
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	BatchSize   int
	Workers     int
	MaxErrors   int
	Now         func() time.Time
}

type commentPager struct {
	source  CommentSource
	eventID int64
	limit   int
}

func (p commentPager) FetchPage(ctx context.Context, offset int) (Page[int, polymarketgamma.Comment], error) {
	items, err := p.source.ListComments(ctx, polymarketgamma.ListCommentsParams{
		ParentEntityType: "Event",
		ParentEntityID:   p.eventID,
		Limit:            p.limit,
		Offset:           offset,
	})
	if err != nil {
		return Page[int, polymarketgamma.Comment]{}, err
	}
	return offsetPage(items, offset, p.limit), nil
}

func (s *CommentSyncService) Sync(ctx context.Context) (Result, error) {
	if s.Source == nil || s.Checkpoints == nil {
		return Result{}, fmt.Errorf("comment sync is not configured")
	}
	log := logger.OrNop(s.Logger).With(zap.String("workflow", "comments"))
	ids, err := s.Store.ListEventIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list events: %w", err)
	}
	events := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !isNumericID(id) {
			continue
		}
		n, _ := strconv.ParseInt(id, 10, 64)
		events = append(events, n)
	}
	log.Info("comment sync started", zap.Int("events", len(events)))

	workers := s.Workers
	if workers <= 0 {
		workers = 3
	}
	errs := NewErrorLog("comments", s.MaxErrors, log, s.Metrics)
	var comments atomic.Int64

	var g errgroup.Group
	g.SetLimit(workers)
	for _, eventID := range events {
		if errs.Tripped() || ctx.Err() != nil {
			break
		}
		eventID := eventID
		g.Go(func() error {
			n, err := s.syncEvent(ctx, eventID, errs, log)
			comments.Add(int64(n))
			if err != nil && ctx.Err() == nil {
				errs.Add(err, "event %d", eventID)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Comments: int(comments.Load())}
	errs.fill(&result)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	log.Info("comments synced", zap.Int("comments", result.Comments), zap.Int("errors", result.ErrorCount))
	return result, nil
}

// syncEvent returns the number of comments stored for one event.
func (s *CommentSyncService) syncEvent(ctx context.Context, eventID int64, errs *ErrorLog, log *zap.Logger) (int, error) {
	limit := s.BatchSize
	if limit <= 0 {
		limit = 50
	}
	key := checkpoint.CommentKey(strconv.FormatInt(eventID, 10))
	state, err := s.Checkpoints.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	offset := int(state.Offset)
	total := state.TotalFetched
	stored := 0

	_, err = Paginate(ctx, commentPager{source: s.Source, eventID: eventID, limit: limit}, offset,
		func(ctx context.Context, page Page[int, polymarketgamma.Comment]) error {
			now := s.now()
			for _, item := range page.Items {
				if errs.Tripped() {
					// Leave the checkpoint on this page so the unsaved
					// remainder is fetched again next run.
					return nil
				}
				if err := s.saveComment(ctx, eventID, item, now, log); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					errs.Add(err, "comment %s", item.ID)
					continue
				}
				stored++
				s.Metrics.AddRows("comments", 1)
			}
			total += int64(len(page.Items))
			if err := s.Checkpoints.Advance(ctx, key, int64(page.Next), total, nil); err != nil {
				return err
			}
			if page.Done {
				return s.Checkpoints.MarkProcessed(ctx, key)
			}
			return nil
		}, errs.Tripped)
	if err != nil && ctx.Err() == nil {
		_ = s.Checkpoints.RecordError(ctx, key, err)
	}
	return stored, err
}

func (s *CommentSyncService) saveComment(ctx context.Context, eventID int64, item polymarketgamma.Comment, now time.Time, log *zap.Logger) error {
	if item.DecodeErr != nil {
		return item.DecodeErr
	}
	graph, err := buildCommentGraph(eventID, item, now)
	if err != nil {
		return err
	}
	if err := s.Store.SaveComment(ctx, graph); err != nil {
		return err
	}
	for _, r := range item.Reactions {
		reaction, ok := buildReaction(graph.Comment.ID, r, now)
		if !ok {
			continue
		}
		if err := s.Store.UpsertCommentReaction(ctx, &reaction); err != nil {
			log.Warn("reaction upsert failed", zap.String("comment_id", graph.Comment.ID), zap.String("reaction_id", reaction.ID), zap.Error(err))
		}
	}
	return nil
}

func buildCommentGraph(eventID int64, item polymarketgamma.Comment, now time.Time) (repository.CommentGraph, error) {
	id := strings.TrimSpace(item.ID.String())
	if id == "" {
		return repository.CommentGraph{}, fmt.Errorf("comment without id")
	}
	entityType := item.ParentEntityType
	if entityType == "" {
		entityType = "Event"
	}
	graph := repository.CommentGraph{
		Comment: models.Comment{
			ID:                id,
			EventID:           strconv.FormatInt(eventID, 10),
			ParentEntityType:  entityType,
			ParentCommentID:   strPtr(item.ParentCommentID.String()),
			Body:              item.Body,
			UserAddress:       item.UserAddress,
			ReplyAddress:      strPtr(item.ReplyAddress),
			ReactionCount:     item.ReactionCount,
			ReportCount:       item.ReportCount,
			ExternalCreatedAt: item.CreatedAt.Ptr(),
			ExternalUpdatedAt: item.UpdatedAt.Ptr(),
			LastSeenAt:        now,
			RawJSON:           rawJSON(item.Raw, item),
		},
	}
	if p := item.Profile; p != nil {
		base := strings.TrimSpace(p.BaseAddress)
		if base == "" {
			base = strings.TrimSpace(item.UserAddress)
		}
		if base != "" {
			graph.Author = &models.UserProfile{
				BaseAddress:           base,
				ProxyWallet:           strPtr(p.ProxyWallet),
				Name:                  strPtr(p.Name),
				Pseudonym:             strPtr(p.Pseudonym),
				DisplayUsernamePublic: p.DisplayUsernamePublic,
				ProfileImage:          strPtr(p.ProfileImage),
				LastSeenAt:            now,
			}
		}
	}
	return graph, nil
}

// buildReaction skips reactions that lack an id, a user or a type.
func buildReaction(commentID string, r polymarketgamma.Reaction, now time.Time) (models.CommentReaction, bool) {
	id := strings.TrimSpace(r.ID.String())
	user := strings.TrimSpace(r.UserAddress)
	kind := strings.TrimSpace(r.ReactionType)
	if id == "" || user == "" || kind == "" {
		return models.CommentReaction{}, false
	}
	return models.CommentReaction{
		ID:                id,
		CommentID:         commentID,
		ReactionType:      kind,
		Icon:              strPtr(r.Icon),
		UserAddress:       user,
		ExternalCreatedAt: r.CreatedAt.Ptr(),
		LastSeenAt:        now,
	}, true
}

func (s *CommentSyncService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
