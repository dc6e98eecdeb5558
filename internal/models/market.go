package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Market struct {
	ID                string           `gorm:"primaryKey;type:text;comment:市场唯一标识"`
	ConditionID       string           `gorm:"type:text;index;comment:链上条件ID"`
	Slug              *string          `gorm:"type:text;index;comment:URL友好标识"`
	Question          string           `gorm:"type:text;not null;default:'';comment:市场问题"`
	Description       *string          `gorm:"type:text;comment:市场描述"`
	Outcomes          datatypes.JSON   `gorm:"comment:结果名称列表"`
	ClobTokenIDs      datatypes.JSON   `gorm:"column:clob_token_ids;comment:结果合约ID列表"`
	Volume            *decimal.Decimal `gorm:"type:numeric(30,10);comment:交易量"`
	Liquidity         *decimal.Decimal `gorm:"type:numeric(30,10);comment:流动性"`
	Active            bool             `gorm:"not null;comment:是否活跃"`
	Closed            bool             `gorm:"not null;default:false;index;comment:是否已关闭"`
	Archived          bool             `gorm:"not null;default:false;comment:是否已归档"`
	NegRisk           *bool            `gorm:"default:null;comment:是否为负风险市场"`
	StartDate         *time.Time       `gorm:"comment:开始时间"`
	EndDate           *time.Time       `gorm:"comment:结束时间"`
	ExternalCreatedAt *time.Time       `gorm:"comment:外部创建时间"`
	ExternalUpdatedAt *time.Time       `gorm:"comment:外部更新时间"`
	LastSeenAt        time.Time        `gorm:"not null;index;comment:最近同步时间"`
	RawJSON           datatypes.JSON   `gorm:"comment:原始数据"`
}

func (Market) TableName() string {
	return "markets"
}

// MarketEvent links a market to each event it is listed under.
type MarketEvent struct {
	MarketID string `gorm:"primaryKey;type:text;comment:市场ID"`
	EventID  string `gorm:"primaryKey;type:text;index;comment:事件ID"`
}

func (MarketEvent) TableName() string {
	return "market_events"
}

type MarketTag struct {
	MarketID string `gorm:"primaryKey;type:text;comment:市场ID"`
	TagID    string `gorm:"primaryKey;type:text;index;comment:标签ID"`
}

func (MarketTag) TableName() string {
	return "market_tags"
}
