package models

import (
	"time"

	"gorm.io/datatypes"
)

type Tag struct {
	ID         string         `gorm:"primaryKey;type:text;comment:标签唯一标识"`
	Label      string         `gorm:"type:text;not null;default:'';comment:标签名称"`
	Slug       *string        `gorm:"type:text;index;comment:URL友好标识"`
	LastSeenAt time.Time      `gorm:"not null;comment:最近同步时间"`
	RawJSON    datatypes.JSON `gorm:"comment:原始数据"`
}

func (Tag) TableName() string {
	return "tags"
}
