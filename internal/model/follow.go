package model

import (
	"time"
)

// Follow 关注关系（A 关注 B）
type Follow struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	FollowerID uint `json:"follower_id" gorm:"index:idx_follow_follower;uniqueIndex:idx_follow_pair;not null"`
	FollowedID uint `json:"followed_id" gorm:"index:idx_follow_followed;uniqueIndex:idx_follow_pair;not null"`
	// 复合唯一键，避免重复关注
	// idx_follow_pair = (follower_id, followed_id)
	CreatedAt time.Time `json:"created_at"`
}

func (Follow) TableName() string { return "follows" }
