package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *UsageRecord) error
	// SumRange totals char_count for an actor in [from, to). Actors with
	// no records sum to zero.
	SumRange(ctx context.Context, db *gorm.DB, actorType, actorID string, from, to time.Time) (int64, error)
}
