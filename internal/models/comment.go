package models

import (
	"time"

	"gorm.io/datatypes"
)

type Comment struct {
	ID                string         `gorm:"primaryKey;type:text;comment:评论唯一标识"`
	EventID           string         `gorm:"type:text;index;not null;comment:所属事件ID"`
	ParentEntityType  string         `gorm:"type:text;not null;default:'Event';comment:父实体类型"`
	ParentCommentID   *string        `gorm:"type:text;index;comment:父评论ID"`
	Body              string         `gorm:"type:text;not null;default:'';comment:评论内容"`
	UserAddress       string         `gorm:"type:text;index;not null;default:'';comment:作者地址"`
	ReplyAddress      *string        `gorm:"type:text;comment:回复对象地址"`
	ReactionCount     int            `gorm:"not null;default:0;comment:反应数"`
	ReportCount       int            `gorm:"not null;default:0;comment:举报数"`
	ExternalCreatedAt *time.Time     `gorm:"index;comment:外部创建时间"`
	ExternalUpdatedAt *time.Time     `gorm:"comment:外部更新时间"`
	LastSeenAt        time.Time      `gorm:"not null;comment:最近同步时间"`
	RawJSON           datatypes.JSON `gorm:"comment:原始数据"`
}

func (Comment) TableName() string {
	return "comments"
}

type CommentReaction struct {
	ID                string     `gorm:"primaryKey;type:text;comment:反应唯一标识"`
	CommentID         string     `gorm:"type:text;index;not null;comment:所属评论ID"`
	ReactionType      string     `gorm:"type:text;not null;comment:反应类型"`
	Icon              *string    `gorm:"type:text;comment:图标"`
	UserAddress       string     `gorm:"type:text;not null;comment:用户地址"`
	ExternalCreatedAt *time.Time `gorm:"comment:外部创建时间"`
	LastSeenAt        time.Time  `gorm:"not null;comment:最近同步时间"`
}

func (CommentReaction) TableName() string {
	return "comment_reactions"
}
