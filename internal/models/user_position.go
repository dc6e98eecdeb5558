package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserPosition struct {
	ID                 uint64          `gorm:"primaryKey;autoIncrement"`
	ProxyWallet        string          `gorm:"type:text;not null;index;comment:代理钱包地址"`
	Asset              string          `gorm:"type:text;not null;comment:合约ID"`
	ConditionID        string          `gorm:"type:text;index;comment:链上条件ID"`
	Size               decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	AvgPrice           decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	InitialValue       decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	CurrentValue       decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	CashPnl            decimal.Decimal `gorm:"column:cash_pnl;type:numeric(30,10);not null;default:0"`
	PercentPnl         decimal.Decimal `gorm:"column:percent_pnl;type:numeric(30,10);not null;default:0"`
	TotalBought        decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	RealizedPnl        decimal.Decimal `gorm:"column:realized_pnl;type:numeric(30,10);not null;default:0"`
	PercentRealizedPnl decimal.Decimal `gorm:"column:percent_realized_pnl;type:numeric(30,10);not null;default:0"`
	CurPrice           decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	Redeemable         bool            `gorm:"not null;default:false"`
	Mergeable          bool            `gorm:"not null;default:false"`
	NegativeRisk       bool            `gorm:"not null;default:false"`
	Title              string          `gorm:"type:text"`
	Slug               string          `gorm:"type:text"`
	Icon               string          `gorm:"type:text"`
	EventSlug          string          `gorm:"type:text"`
	Outcome            string          `gorm:"type:text"`
	OutcomeIndex       int             `gorm:"not null;default:0"`
	OppositeOutcome    string          `gorm:"type:text"`
	OppositeAsset      string          `gorm:"type:text"`
	EndDate            *time.Time
	ScrapedAt          time.Time `gorm:"not null"`
}

func (UserPosition) TableName() string {
	return "user_positions"
}
