package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByName(ctx context.Context, name string) (*User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	List(ctx context.Context, limit int, afterID snowflake.ID) ([]User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	UpsertProfile(ctx context.Context, profile *Profile) error
}
