package models

import "time"

// UserProfile is seeded from comment authors; ProxyWallet drives the
// position and trade syncs.
type UserProfile struct {
	BaseAddress           string    `gorm:"primaryKey;type:text;comment:用户基础地址"`
	ProxyWallet           *string   `gorm:"type:text;index;comment:代理钱包地址"`
	Name                  *string   `gorm:"type:text;comment:用户名"`
	Pseudonym             *string   `gorm:"type:text;comment:匿名昵称"`
	DisplayUsernamePublic bool      `gorm:"not null;default:false;comment:是否公开用户名"`
	ProfileImage          *string   `gorm:"type:text;comment:头像"`
	LastSeenAt            time.Time `gorm:"not null;comment:最近同步时间"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
