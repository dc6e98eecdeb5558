package models

import "time"

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

const (
	RunTypeMarkets      = "markets"
	RunTypeComments     = "comments"
	RunTypePrices       = "prices"
	RunTypePriceHistory = "price-history"
	RunTypePositions    = "positions"
	RunTypeTrades       = "trades"
	RunTypeAll          = "all"
)

type ScraperRun struct {
	ID                    uint64     `gorm:"primaryKey;autoIncrement"`
	RunUUID               string     `gorm:"column:run_uuid;type:text;uniqueIndex;not null;comment:运行关联ID"`
	RunType               string     `gorm:"type:varchar(32);not null;index;comment:运行类型"`
	Status                string     `gorm:"type:varchar(16);not null;index;comment:运行状态"`
	StartTime             time.Time  `gorm:"not null;index;comment:开始时间"`
	EndTime               *time.Time `gorm:"comment:结束时间"`
	DurationMs            *int64     `gorm:"comment:耗时(毫秒)"`
	MarketsScraped        int        `gorm:"not null;default:0"`
	MarketOutcomesScraped int        `gorm:"not null;default:0"`
	CommentsScraped       int        `gorm:"not null;default:0"`
	TokensProcessed       int        `gorm:"not null;default:0"`
	PriceDataPointsStored int        `gorm:"not null;default:0"`
	UsersProcessed        int        `gorm:"not null;default:0"`
	UserPositionsScraped  int        `gorm:"not null;default:0"`
	UserTradesScraped     int        `gorm:"not null;default:0"`
	Errors                *string    `gorm:"type:text;comment:错误信息(前N条)"`
	ErrorCount            int        `gorm:"not null;default:0;comment:错误总数"`
	CreatedAt             time.Time  `gorm:"autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime"`
}

func (ScraperRun) TableName() string {
	return "scraper_runs"
}
