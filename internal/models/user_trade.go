package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserTrade struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement"`
	ProxyWallet     string          `gorm:"type:text;not null;index:idx_user_trades_wallet_ts,priority:1"`
	Side            string          `gorm:"type:varchar(10);not null"`
	Asset           string          `gorm:"type:text;not null"`
	ConditionID     string          `gorm:"type:text;index"`
	Size            decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Price           decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	Timestamp       time.Time       `gorm:"not null;index:idx_user_trades_wallet_ts,priority:2"`
	TransactionHash string          `gorm:"type:text;not null;uniqueIndex"`
	Title           string          `gorm:"type:text"`
	Slug            string          `gorm:"type:text"`
	Icon            string          `gorm:"type:text"`
	EventSlug       string          `gorm:"type:text"`
	Outcome         string          `gorm:"type:text"`
	OutcomeIndex    int             `gorm:"not null;default:0"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
}

func (UserTrade) TableName() string {
	return "user_trades"
}
