package model

import "time"

// Post 游记；UserID 创建后不可变
type Post struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index:idx_post_author;not null"`
	Title       string    `json:"title" gorm:"type:varchar(256);not null"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	DateOfVisit string    `json:"date_of_visit" gorm:"type:varchar(32);not null"`
	CountryName string    `json:"country_name" gorm:"type:varchar(128);index;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "posts" }

// PostView is a post joined with its author and the read-time aggregate counts.
type PostView struct {
	Post
	AuthorName    string `json:"author_name"`
	AuthorSurname string `json:"author_surname"`
	Likes         int64  `json:"likes"`
	Dislikes      int64  `json:"dislikes"`
	CommentCount  int64  `json:"comment_count"`
}
