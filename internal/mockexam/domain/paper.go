package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CompletedPaper records that a user finished a mock exam paper. One row
// per (user, paper); repeat completions keep the first timestamp.
type CompletedPaper struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID `gorm:"not null;uniqueIndex:ux_completed_papers_user_paper" json:"user_id"`
	PaperID     string       `gorm:"not null;uniqueIndex:ux_completed_papers_user_paper" json:"paper_id"`
	Score       *int         `json:"score,omitempty"`
	CompletedAt time.Time    `gorm:"not null" json:"completed_at"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, paper *CompletedPaper) error
	FindByUserAndPaper(ctx context.Context, db *gorm.DB, userID snowflake.ID, paperID string) (*CompletedPaper, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]CompletedPaper, error)
}

type MarkCompletedRequest struct {
	PaperID string
	Score   *int
}

type Service interface {
	MarkCompleted(ctx context.Context, identityKey string, req MarkCompletedRequest) (CompletedPaper, error)
	ListCompleted(ctx context.Context, identityKey string) ([]CompletedPaper, error)
}

var (
	ErrInvalidPaperID    = errors.New("invalid_paper_id")
	ErrSessionNotFound   = errors.New("session_not_found")
	ErrSessionNotRunning = errors.New("session_not_running")
)
