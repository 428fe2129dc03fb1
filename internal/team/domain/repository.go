package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, team *Team) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Team, error)
	FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*Team, error)
	FindByMember(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Team, error)

	InsertMember(ctx context.Context, db *gorm.DB, member *TeamMember) error
	DeleteMember(ctx context.Context, db *gorm.DB, teamID, userID snowflake.ID) (int64, error)
	ListMembers(ctx context.Context, db *gorm.DB, teamID snowflake.ID) ([]TeamMember, error)
}
