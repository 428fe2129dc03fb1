package repository

import (
	"context"
	"time"

	usagedomain "github.com/veritext/veritext/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *usagedomain.UsageRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) SumRange(ctx context.Context, db *gorm.DB, actorType, actorID string, from, to time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(char_count), 0)
		 FROM usage_records
		 WHERE actor_type = ? AND actor_id = ?
		   AND created_at >= ? AND created_at < ?`,
		actorType,
		actorID,
		from,
		to,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
