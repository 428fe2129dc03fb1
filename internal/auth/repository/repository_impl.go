package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/veritext/veritext/internal/auth/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Preload("Profile").Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

func (r *repo) FindByName(ctx context.Context, name string) (*domain.User, error) {
	return r.findOne(ctx, "LOWER(name) = ?", strings.ToLower(name))
}

func (r *repo) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	lowered := strings.ToLower(strings.TrimSpace(identifier))
	return r.findOne(ctx, "LOWER(email) = ? OR LOWER(name) = ?", lowered, lowered)
}

func (r *repo) findOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Preload("Profile").Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) List(ctx context.Context, limit int, afterID snowflake.ID) ([]domain.User, error) {
	var users []domain.User
	q := r.db.WithContext(ctx).Preload("Profile").Order("id ASC").Limit(limit)
	if afterID != 0 {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(profile).Error
}
