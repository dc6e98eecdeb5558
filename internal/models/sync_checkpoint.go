package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncCheckpoint is one resume marker per entity key, e.g. "markets" or
// "comments/event/123".
type SyncCheckpoint struct {
	Key           string         `gorm:"primaryKey;type:text;comment:同步范围标识"`
	Offset        int64          `gorm:"not null;default:0;comment:分页偏移"`
	TotalFetched  int64          `gorm:"not null;default:0;comment:累计抓取数"`
	ProcessedAt   *time.Time     `gorm:"comment:处理完成时间"`
	LastAttemptAt *time.Time     `gorm:"comment:最近尝试时间"`
	LastSuccessAt *time.Time     `gorm:"comment:最近成功时间"`
	LastError     *string        `gorm:"type:text;comment:最近错误信息"`
	StatsJSON     datatypes.JSON `gorm:"comment:本轮统计JSON"`
}

func (SyncCheckpoint) TableName() string {
	return "sync_checkpoints"
}
