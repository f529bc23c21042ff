package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindDay(ctx context.Context, db *gorm.DB, userID snowflake.ID, day string) (*UsageRecord, error)
	ListSince(ctx context.Context, db *gorm.DB, userID snowflake.ID, fromDay string) ([]UsageRecord, error)
	Insert(ctx context.Context, db *gorm.DB, record *UsageRecord) error
	// IncrementIfBelow bumps the day's count by one only while it is
	// still under limit, reporting whether a row was updated. The guard
	// lives in the UPDATE itself so concurrent consumers cannot both
	// take the last question.
	IncrementIfBelow(ctx context.Context, db *gorm.DB, userID snowflake.ID, day string, limit int) (bool, error)
}
