package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TokenPrice struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement"`
	MarketOutcomeID uint64          `gorm:"not null;uniqueIndex:idx_token_prices_outcome_ts,priority:1;comment:关联结果ID"`
	Timestamp       time.Time       `gorm:"not null;uniqueIndex:idx_token_prices_outcome_ts,priority:2;comment:价格时间"`
	Price           decimal.Decimal `gorm:"type:numeric(20,10);not null;comment:价格"`
}

func (TokenPrice) TableName() string {
	return "token_prices"
}
