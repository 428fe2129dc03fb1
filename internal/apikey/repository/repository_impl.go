package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/veritext/veritext/internal/apikey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() apikeydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).Create(key).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]apikeydomain.APIKey, error) {
	var keys []apikeydomain.APIKey
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID snowflake.ID, id snowflake.ID) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apikeydomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *repo) FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).
		Where("key_hash = ?", keyHash).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apikeydomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, at time.Time) error {
	return db.WithContext(ctx).
		Model(&apikeydomain.APIKey{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": at}).Error
}

func (r *repo) TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&apikeydomain.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
