package models

import (
	"time"

	"gorm.io/datatypes"
)

type Event struct {
	ID                string         `gorm:"primaryKey;type:text;comment:事件唯一标识"`
	Slug              *string        `gorm:"type:text;index;comment:URL友好标识"`
	Title             string         `gorm:"type:text;not null;default:'';comment:事件标题"`
	Description       *string        `gorm:"type:text;comment:事件描述"`
	Active            bool           `gorm:"not null;comment:是否活跃"`
	Closed            bool           `gorm:"not null;default:false;comment:是否已关闭"`
	StartTime         *time.Time     `gorm:"comment:开始时间"`
	EndTime           *time.Time     `gorm:"comment:结束时间"`
	ExternalUpdatedAt *time.Time     `gorm:"comment:外部更新时间"`
	LastSeenAt        time.Time      `gorm:"not null;comment:最近同步时间"`
	RawJSON           datatypes.JSON `gorm:"comment:原始数据"`
}

func (Event) TableName() string {
	return "events"
}
