package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, detection *Detection) error
	// TrimToLimit deletes the oldest rows beyond keep for one user.
	TrimToLimit(ctx context.Context, db *gorm.DB, userID snowflake.ID, keep int) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, userID snowflake.ID, id snowflake.ID) (*Detection, error)
	// List returns up to limit rows newest-first, starting strictly
	// after the beforeID cursor when it is non-zero.
	List(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int, beforeID snowflake.ID) ([]Detection, error)
	UpdateTitle(ctx context.Context, db *gorm.DB, userID snowflake.ID, id snowflake.ID, title string) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID) (int64, error)
	DeleteAll(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
}
