package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DayFormat is the canonical key for the daily ledger. Days are computed
// in UTC so a user's quota resets at the same instant worldwide.
const DayFormat = "2006-01-02"

// UsageRecord is one row of the per-user daily question ledger. There is
// at most one row per (user, day); the count only ever grows within a day.
type UsageRecord struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID        snowflake.ID `gorm:"not null;uniqueIndex:ux_usage_records_user_day" json:"user_id"`
	Day           string       `gorm:"type:date;not null;uniqueIndex:ux_usage_records_user_day" json:"day"`
	QuestionCount int          `gorm:"not null;default:0" json:"question_count"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Day returns t's ledger day key in UTC.
func Day(t time.Time) string {
	return t.UTC().Format(DayFormat)
}
