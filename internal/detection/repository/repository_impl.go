package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	detectiondomain "github.com/veritext/veritext/internal/detection/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() detectiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, detection *detectiondomain.Detection) error {
	return db.WithContext(ctx).Create(detection).Error
}

func (r *repo) TrimToLimit(ctx context.Context, db *gorm.DB, userID snowflake.ID, keep int) (int64, error) {
	// Snowflake ids are time-ordered, so "newest" is "largest id".
	tx := db.WithContext(ctx).Exec(
		`DELETE FROM detections
		 WHERE user_id = ?
		   AND id NOT IN (
		     SELECT id FROM (
		       SELECT id FROM detections WHERE user_id = ? ORDER BY id DESC LIMIT ?
		     ) AS newest
		   )`,
		userID,
		userID,
		keep,
	)
	return tx.RowsAffected, tx.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID snowflake.ID, id snowflake.ID) (*detectiondomain.Detection, error) {
	var detection detectiondomain.Detection
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&detection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, detectiondomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &detection, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int, beforeID snowflake.ID) ([]detectiondomain.Detection, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit)
	if beforeID != 0 {
		q = q.Where("id < ?", beforeID)
	}

	var detections []detectiondomain.Detection
	if err := q.Find(&detections).Error; err != nil {
		return nil, err
	}
	return detections, nil
}

func (r *repo) UpdateTitle(ctx context.Context, db *gorm.DB, userID snowflake.ID, id snowflake.ID, title string) (int64, error) {
	tx := db.WithContext(ctx).
		Model(&detectiondomain.Detection{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("title", title)
	return tx.RowsAffected, tx.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx := db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&detectiondomain.Detection{})
	return tx.RowsAffected, tx.Error
}

func (r *repo) DeleteAll(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	tx := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&detectiondomain.Detection{})
	return tx.RowsAffected, tx.Error
}
