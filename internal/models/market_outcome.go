package models

import "time"

// MarketOutcome is one tradable token of a market. PricesScrapedAt and
// PricesCount are only written together with a committed price batch.
type MarketOutcome struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement"`
	MarketID        string     `gorm:"type:text;index;not null;comment:关联市场ID"`
	ClobTokenID     string     `gorm:"type:text;uniqueIndex;not null;comment:CLOB合约ID"`
	OutcomeText     string     `gorm:"type:text;not null;default:'';comment:结果名称(Yes/No)"`
	OutcomeIndex    int        `gorm:"not null;default:0;comment:结果序号"`
	PricesScrapedAt *time.Time `gorm:"index;comment:价格历史抓取时间"`
	PricesCount     int64      `gorm:"not null;default:0;comment:价格点数量"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`
}

func (MarketOutcome) TableName() string {
	return "market_outcomes"
}
