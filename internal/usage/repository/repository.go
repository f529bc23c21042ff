package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/usage/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindDay(ctx context.Context, db *gorm.DB, userID snowflake.ID, day string) (*domain.UsageRecord, error) {
	var record domain.UsageRecord
	err := db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		Take(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) ListSince(ctx context.Context, db *gorm.DB, userID snowflake.ID, fromDay string) ([]domain.UsageRecord, error) {
	var records []domain.UsageRecord
	err := db.WithContext(ctx).
		Where("user_id = ? AND day >= ?", userID, fromDay).
		Order("day desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.UsageRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) IncrementIfBelow(ctx context.Context, db *gorm.DB, userID snowflake.ID, day string, limit int) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE usage_records
		 SET question_count = question_count + 1, updated_at = ?
		 WHERE user_id = ? AND day = ? AND question_count < ?`,
		time.Now().UTC(),
		userID,
		day,
		limit,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
