// Package domain contains persistence models for the usage ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Actor kinds recorded in the ledger.
const (
	ActorTypeUser  = "user"
	ActorTypeGuest = "guest"
)

// UsageRecord stores one unit of consumed detection capacity. Records
// are append-only: deleting detection history never rewrites the ledger,
// so spent quota stays spent.
type UsageRecord struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	ActorType   string            `gorm:"column:actor_type;type:text;not null;index:ix_usage_records_actor_created,priority:1"`
	ActorID     string            `gorm:"column:actor_id;type:text;not null;index:ix_usage_records_actor_created,priority:2"`
	CharCount   int64             `gorm:"column:char_count;not null"`
	DetectionID *snowflake.ID     `gorm:"column:detection_id"`
	Meta        datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_usage_records_actor_created,priority:3"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }
