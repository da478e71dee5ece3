package model

import "time"

// Like 点赞/点踩记录
type Like struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"user_id" gorm:"not null;uniqueIndex:ux_like_user_post"`
	PostID uint `json:"post_id" gorm:"not null;uniqueIndex:ux_like_user_post;index"`
	// 复合唯一键 ux_like_user_post = (user_id, post_id)，重复投票覆盖 is_like
	IsLike    bool      `json:"is_like" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Like) TableName() string { return "liked_posts" }
