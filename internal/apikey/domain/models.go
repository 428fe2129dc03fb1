package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// APIKey stores hashed API credentials owned by a single account. The
// plaintext key is shown exactly once at creation and never persisted.
type APIKey struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     snowflake.ID `gorm:"column:user_id;not null;index"`
	Name       string       `gorm:"type:text;not null"`
	KeyPrefix  string       `gorm:"column:key_prefix;type:text;not null"`
	KeyHash    string       `gorm:"column:key_hash;type:text;not null;uniqueIndex"`
	IsActive   bool         `gorm:"column:is_active;not null;default:true"`
	LastUsedAt *time.Time   `gorm:"column:last_used_at"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }
