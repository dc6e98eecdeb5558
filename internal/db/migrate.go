package db

import (
	"polymarket-ingest/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Event{},
		&models.Tag{},
		&models.Market{},
		&models.MarketEvent{},
		&models.MarketTag{},
		&models.MarketOutcome{},
		&models.UserProfile{},
		&models.Comment{},
		&models.CommentReaction{},
		&models.TokenPrice{},
		&models.UserPosition{},
		&models.UserTrade{},
		&models.SyncCheckpoint{},
		&models.ScraperRun{},
	)
}
