// Package checkpoint keeps durable resume markers for paged workflows.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
)

const (
	KeyMarkets       = "markets"
	KeyCommentPrefix = "comments/event/"
)

func CommentKey(eventID string) string {
	return KeyCommentPrefix + eventID
}

// State is the resumable view of one checkpoint row. The zero value means
// "start from the beginning".
type State struct {
	Key          string
	Offset       int64
	TotalFetched int64
	Processed    bool
}

type Store struct {
	Repo repository.CheckpointRepository
	Now  func() time.Time
}

func New(repo repository.CheckpointRepository) *Store {
	return &Store{Repo: repo}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) Get(ctx context.Context, key string) (State, error) {
	row, err := s.Repo.GetCheckpoint(ctx, key)
	if err != nil {
		return State{}, fmt.Errorf("load checkpoint %s: %w", key, err)
	}
	if row == nil {
		return State{Key: key}, nil
	}
	return State{
		Key:          key,
		Offset:       row.Offset,
		TotalFetched: row.TotalFetched,
		Processed:    row.ProcessedAt != nil,
	}, nil
}

// Advance records that a page was persisted and the next read starts at
// offset.
func (s *Store) Advance(ctx context.Context, key string, offset, total int64, stats map[string]int) error {
	row, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	now := s.now()
	row.Offset = offset
	row.TotalFetched = total
	row.LastAttemptAt = &now
	row.LastSuccessAt = &now
	row.LastError = nil
	if len(stats) > 0 {
		row.StatsJSON = statsJSON(stats)
	}
	return s.save(ctx, row)
}

func (s *Store) MarkProcessed(ctx context.Context, key string) error {
	row, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	now := s.now()
	row.ProcessedAt = &now
	return s.save(ctx, row)
}

// RecordError keeps the offset and stamps the failure.
func (s *Store) RecordError(ctx context.Context, key string, cause error) error {
	if cause == nil {
		return nil
	}
	row, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	now := s.now()
	msg := cause.Error()
	row.LastAttemptAt = &now
	row.LastError = &msg
	return s.save(ctx, row)
}

// Reset deletes every checkpoint whose key starts with prefix.
func (s *Store) Reset(ctx context.Context, prefix string) (int64, error) {
	n, err := s.Repo.DeleteCheckpoints(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("reset checkpoints %s: %w", prefix, err)
	}
	return n, nil
}

func (s *Store) load(ctx context.Context, key string) (*models.SyncCheckpoint, error) {
	row, err := s.Repo.GetCheckpoint(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", key, err)
	}
	if row == nil {
		row = &models.SyncCheckpoint{Key: key}
	}
	return row, nil
}

func (s *Store) save(ctx context.Context, row *models.SyncCheckpoint) error {
	if err := s.Repo.SaveCheckpoint(ctx, row); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", row.Key, err)
	}
	return nil
}

func statsJSON(stats map[string]int) datatypes.JSON {
	payload, err := json.Marshal(stats)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}
