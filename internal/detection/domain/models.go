// Package domain contains core types for the detection service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Detection is one analyzed text kept in a user's history. Guests get
// results but no history rows.
type Detection struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index:ix_detections_user_created,priority:1"`
	Title     string       `gorm:"type:text;not null;default:''"`
	Content   string       `gorm:"type:text;not null"`
	CharCount int64        `gorm:"column:char_count;not null"`
	Score     float64      `gorm:"not null"`
	RawScore  float64      `gorm:"column:raw_score;not null"`
	Threshold float64      `gorm:"not null"`
	Label     string       `gorm:"type:text;not null"`
	ModelName string       `gorm:"column:model_name;type:text;not null;default:''"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_detections_user_created,priority:2"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Detection) TableName() string { return "detections" }
