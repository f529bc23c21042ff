package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/mockexam/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, paper *domain.CompletedPaper) error {
	return db.WithContext(ctx).Create(paper).Error
}

func (r *repo) FindByUserAndPaper(ctx context.Context, db *gorm.DB, userID snowflake.ID, paperID string) (*domain.CompletedPaper, error) {
	var paper domain.CompletedPaper
	err := db.WithContext(ctx).
		Where("user_id = ? AND paper_id = ?", userID, paperID).
		Take(&paper).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &paper, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.CompletedPaper, error) {
	var papers []domain.CompletedPaper
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at desc").
		Find(&papers).Error
	if err != nil {
		return nil, err
	}
	return papers, nil
}
