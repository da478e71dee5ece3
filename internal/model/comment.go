package model

import "time"

// Comment 评论，创建后不可修改
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"index:idx_comment_post_created;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_comment_post_created"`
}

func (Comment) TableName() string { return "comments" }

type CommentView struct {
	Comment
	UserName    string `json:"user_name"`
	UserSurname string `json:"user_surname"`
}
