package models

import "time"

// APIKey is a caller credential. Keys are stored hashed (KeyHash); the
// plaintext key is returned to the caller exactly once, at creation time.
type APIKey struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	KeyHash   string     `json:"-" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name      string     `json:"name" gorm:"type:varchar(100);not null"`
	IsAdmin   bool       `json:"is_admin" gorm:"not null;default:false"`
	Active    bool       `json:"active" gorm:"not null;default:true"`
	RateLimit *int       `json:"rate_limit,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

func (APIKey) TableName() string { return "api_keys" }
