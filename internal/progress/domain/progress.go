package domain

import (
	"context"
	"time"
)

// Summary is the dashboard view of a learner's activity. It is derived,
// cacheable presentation data; quota decisions never read it.
type Summary struct {
	QuestionsToday  int       `json:"questions_today"`
	Remaining       int       `json:"remaining"`
	Limit           int       `json:"limit"`
	CompletedPapers int       `json:"completed_papers"`
	StreakDays      int       `json:"streak_days"`
	ComputedAt      time.Time `json:"computed_at"`
}

type Service interface {
	Summary(ctx context.Context, identityKey string) (Summary, error)
}
