package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"polymarket-ingest/internal/models"
	"polymarket-ingest/internal/repository"
)

var ErrTxAcquireTimeout = errors.New("transaction not acquired within budget")

var _ repository.IngestRepository = (*Store)(nil)

// TxBudget bounds a transaction: MaxWait to begin, Timeout for its body.
type TxBudget struct {
	MaxWait time.Duration
	Timeout time.Duration
}

type Store struct {
	db     *gorm.DB
	budget TxBudget
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTxBudget(budget TxBudget) *Store {
	s.budget = budget
	return s
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil {
		return nil
	}
	return s.InTxBudget(ctx, s.budget, fn)
}

// InTxBudget fails with ErrTxAcquireTimeout when BEGIN took longer than
// budget.MaxWait, and cancels the body after budget.Timeout.
func (s *Store) InTxBudget(ctx context.Context, budget TxBudget, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	if budget.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget.MaxWait+budget.Timeout)
		defer cancel()
	}
	began := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if budget.MaxWait > 0 && time.Since(began) > budget.MaxWait {
			return ErrTxAcquireTimeout
		}
		return fn(tx)
	})
}

// --- markets ----------------------------------------------------------------

func (s *Store) SaveMarketGraph(ctx context.Context, graph repository.MarketGraph) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(graph.Market.ID) == "" {
		return fmt.Errorf("market id is required")
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := upsertEventsTx(tx, graph.Events); err != nil {
			return fmt.Errorf("upsert events: %w", err)
		}
		if err := upsertTagsTx(tx, graph.Tags); err != nil {
			return fmt.Errorf("upsert tags: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"condition_id",
				"slug",
				"question",
				"description",
				"outcomes",
				"clob_token_ids",
				"volume",
				"liquidity",
				"active",
				"closed",
				"archived",
				"neg_risk",
				"start_date",
				"end_date",
				"external_created_at",
				"external_updated_at",
				"last_seen_at",
				"raw_json",
			}),
		}).Create(&graph.Market).Error; err != nil {
			return fmt.Errorf("upsert market: %w", err)
		}
		if links := marketEventLinks(graph); len(links) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return fmt.Errorf("link events: %w", err)
			}
		}
		if links := marketTagLinks(graph); len(links) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return fmt.Errorf("link tags: %w", err)
			}
		}
		if len(graph.Outcomes) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "clob_token_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"market_id", "outcome_text", "outcome_index", "updated_at"}),
			}).Create(&graph.Outcomes).Error; err != nil {
				return fmt.Errorf("upsert outcomes: %w", err)
			}
		}
		return nil
	})
}

func upsertEventsTx(tx *gorm.DB, items []models.Event) error {
	if len(items) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"slug",
			"title",
			"description",
			"active",
			"closed",
			"start_time",
			"end_time",
			"external_updated_at",
			"last_seen_at",
			"raw_json",
		}),
	}).Create(&items).Error
}

func upsertTagsTx(tx *gorm.DB, items []models.Tag) error {
	if len(items) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "slug", "last_seen_at", "raw_json"}),
	}).Create(&items).Error
}

func marketEventLinks(graph repository.MarketGraph) []models.MarketEvent {
	out := make([]models.MarketEvent, 0, len(graph.Events))
	for _, ev := range graph.Events {
		out = append(out, models.MarketEvent{MarketID: graph.Market.ID, EventID: ev.ID})
	}
	return out
}

func marketTagLinks(graph repository.MarketGraph) []models.MarketTag {
	out := make([]models.MarketTag, 0, len(graph.Tags))
	for _, tag := range graph.Tags {
		out = append(out, models.MarketTag{MarketID: graph.Market.ID, TagID: tag.ID})
	}
	return out
}

func (s *Store) CountMarkets(ctx context.Context) (int64, error) {
	return s.count(ctx, &models.Market{})
}

func (s *Store) CountOutcomes(ctx context.Context) (int64, error) {
	return s.count(ctx, &models.MarketOutcome{})
}

func (s *Store) count(ctx context.Context, model any) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(model).Count(&n).Error
	return n, err
}

// --- comments ---------------------------------------------------------------

func (s *Store) ListEventIDs(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) SaveComment(ctx context.Context, graph repository.CommentGraph) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(graph.Comment.ID) == "" {
		return fmt.Errorf("comment id is required")
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if graph.Author != nil && strings.TrimSpace(graph.Author.BaseAddress) != "" {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "base_address"}},
				DoUpdates: clause.Assignments(map[string]any{
					"proxy_wallet":            gorm.Expr("COALESCE(excluded.proxy_wallet, user_profiles.proxy_wallet)"),
					"name":                    gorm.Expr("excluded.name"),
					"pseudonym":               gorm.Expr("excluded.pseudonym"),
					"display_username_public": gorm.Expr("excluded.display_username_public"),
					"profile_image":           gorm.Expr("excluded.profile_image"),
					"last_seen_at":            gorm.Expr("excluded.last_seen_at"),
				}),
			}).Create(graph.Author).Error; err != nil {
				return fmt.Errorf("upsert profile: %w", err)
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"parent_comment_id",
				"body",
				"reply_address",
				"reaction_count",
				"report_count",
				"external_updated_at",
				"last_seen_at",
				"raw_json",
			}),
		}).Create(&graph.Comment).Error
	})
}

func (s *Store) UpsertCommentReaction(ctx context.Context, item *models.CommentReaction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reaction_type", "icon", "last_seen_at"}),
	}).Create(item).Error
}

// --- prices -----------------------------------------------------------------

// ListOutcomeIDsForPrices orders outcomes by their market's recency, newest
// first, so an interrupted sweep has covered the most relevant tokens.
func (s *Store) ListOutcomeIDsForPrices(ctx context.Context, filter repository.OutcomeFilter) ([]uint64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.MarketOutcome{}).
		Joins("JOIN markets ON markets.id = market_outcomes.market_id")
	if filter.OnlyUnscraped {
		query = query.Where("market_outcomes.prices_scraped_at IS NULL")
	}
	if filter.OpenMarkets {
		query = query.Where("markets.closed = ?", false)
	}
	var ids []uint64
	if err := query.
		Order("markets.last_seen_at desc").
		Order("market_outcomes.id asc").
		Pluck("market_outcomes.id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ListOutcomesByIDs(ctx context.Context, ids []uint64) ([]models.MarketOutcome, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.MarketOutcome
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	pos := make(map[uint64]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	sort.Slice(items, func(i, j int) bool { return pos[items[i].ID] < pos[items[j].ID] })
	return items, nil
}

// InsertPriceBatch inserts rows skipping (outcome, timestamp) duplicates and
// stamps the flushed outcomes in the same transaction. It returns the number
// of rows actually inserted.
func (s *Store) InsertPriceBatch(ctx context.Context, batch repository.PriceBatch, chunkSize int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if len(batch.Rows) == 0 && len(batch.OutcomeIDs) == 0 {
		return 0, nil
	}
	if chunkSize <= 0 {
		chunkSize = 10000
	}
	scrapedAt := batch.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}
	var inserted int64
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		inserted = 0
		for start := 0; start < len(batch.Rows); start += chunkSize {
			end := min(start+chunkSize, len(batch.Rows))
			chunk := batch.Rows[start:end]
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&chunk)
			if res.Error != nil {
				return fmt.Errorf("insert price chunk %d-%d: %w", start, end, res.Error)
			}
			inserted += res.RowsAffected
		}
		if len(batch.OutcomeIDs) == 0 {
			return nil
		}
		return tx.Model(&models.MarketOutcome{}).
			Where("id IN ?", batch.OutcomeIDs).
			Updates(map[string]any{
				"prices_scraped_at": scrapedAt,
				"prices_count":      gorm.Expr("(SELECT COUNT(*) FROM token_prices WHERE token_prices.market_outcome_id = market_outcomes.id)"),
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// --- users ------------------------------------------------------------------

func (s *Store) ListUserWallets(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var wallets []string
	if err := s.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("proxy_wallet IS NOT NULL AND proxy_wallet <> ''").
		Distinct("proxy_wallet").
		Order("proxy_wallet asc").
		Pluck("proxy_wallet", &wallets).Error; err != nil {
		return nil, err
	}
	return wallets, nil
}

// ReplaceUserPositions swaps the wallet's stored snapshot for items.
func (s *Store) ReplaceUserPositions(ctx context.Context, wallet string, items []models.UserPosition) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(wallet) == "" {
		return fmt.Errorf("wallet is required")
	}
	if len(items) == 0 {
		return s.db.WithContext(ctx).Where("proxy_wallet = ?", wallet).Delete(&models.UserPosition{}).Error
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("proxy_wallet = ?", wallet).Delete(&models.UserPosition{}).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
}

func (s *Store) LatestTradeTimestamp(ctx context.Context, wallet string) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.UserTrade
	err := s.db.WithContext(ctx).
		Where("proxy_wallet = ?", wallet).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts := item.Timestamp.UTC()
	return &ts, nil
}

func (s *Store) InsertUserTrades(ctx context.Context, items []models.UserTrade) (int64, error) {
	if s == nil || s.db == nil || len(items) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&items)
	return res.RowsAffected, res.Error
}

// --- checkpoints ------------------------------------------------------------

func (s *Store) GetCheckpoint(ctx context.Context, key string) (*models.SyncCheckpoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SyncCheckpoint
	err := s.db.WithContext(ctx).Where(`"key" = ?`, key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveCheckpoint(ctx context.Context, item *models.SyncCheckpoint) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return fmt.Errorf("checkpoint key is required")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"offset",
			"total_fetched",
			"processed_at",
			"last_attempt_at",
			"last_success_at",
			"last_error",
			"stats_json",
		}),
	}).Create(item).Error
}

func (s *Store) DeleteCheckpoints(ctx context.Context, keyPrefix string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if strings.TrimSpace(keyPrefix) == "" {
		return 0, fmt.Errorf("checkpoint key prefix is required")
	}
	res := s.db.WithContext(ctx).Where(`"key" LIKE ? ESCAPE '\'`, escapeLike(keyPrefix)+"%").Delete(&models.SyncCheckpoint{})
	return res.RowsAffected, res.Error
}

func escapeLike(s string) string {
	return strings.NewReplacer("%", "\\%", "_", "\\_").Replace(s)
}

// --- runs -------------------------------------------------------------------

func (s *Store) CreateRun(ctx context.Context, item *models.ScraperRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetRun(ctx context.Context, id uint64) (*models.ScraperRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ScraperRun
	err := s.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateRun(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || len(updates) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.ScraperRun{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s not found", strconv.FormatUint(id, 10))
	}
	return nil
}

func (s *Store) FinalizeRun(ctx context.Context, id uint64, updates map[string]any) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.ScraperRun{}).
		Where("id = ? AND status = ?", id, models.RunStatusRunning).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]models.ScraperRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ScraperRun
	if err := s.db.WithContext(ctx).
		Model(&models.ScraperRun{}).
		Order("start_time desc").
		Order("id desc").
		Limit(normalizeLimit(limit, 10)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}
