package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	List(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]APIKey, error)
	FindByID(ctx context.Context, db *gorm.DB, userID snowflake.ID, id snowflake.ID) (*APIKey, error)
	FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*APIKey, error)
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, at time.Time) error
	TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
