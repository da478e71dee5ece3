package model

import "time"

// APIKey countryinfo 服务的访问密钥
type APIKey struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"column:api_key;type:varchar(36);uniqueIndex;not null"`
	Owner     string    `json:"owner" gorm:"type:varchar(255);not null"`
	Active    bool      `json:"active" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (APIKey) TableName() string { return "api_keys" }
