package service

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/cache"
	"github.com/elevenplus/tutor/internal/clock"
	mockexamdomain "github.com/elevenplus/tutor/internal/mockexam/domain"
	profiledomain "github.com/elevenplus/tutor/internal/profile/domain"
	"github.com/elevenplus/tutor/internal/progress/domain"
	usagedomain "github.com/elevenplus/tutor/internal/usage/domain"
)

const (
	summaryTTL = 30 * time.Second
	// streakWindowDays bounds how far back the streak query reaches.
	streakWindowDays = 60
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Profiles profiledomain.Service
	Usage    usagedomain.Repository
	Papers   mockexamdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	profiles profiledomain.Service
	usage    usagedomain.Repository
	papers   mockexamdomain.Repository
	cache    cache.Cache[string, domain.Summary]
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("progress.service"),
		clock:    p.Clock,
		profiles: p.Profiles,
		usage:    p.Usage,
		papers:   p.Papers,
		cache:    cache.NewTTLCache[string, domain.Summary](),
	}
}

func (s *Service) Summary(ctx context.Context, identityKey string) (domain.Summary, error) {
	if cached, ok := s.cache.Get(identityKey); ok {
		return cached, nil
	}

	profile, err := s.profiles.GetByIdentity(ctx, identityKey)
	if err != nil {
		return domain.Summary{}, err
	}

	now := s.clock.Now()
	fromDay := usagedomain.Day(now.AddDate(0, 0, -streakWindowDays))
	records, err := s.usage.ListSince(ctx, s.db, profile.ID, fromDay)
	if err != nil {
		return domain.Summary{}, err
	}

	papers, err := s.papers.ListByUser(ctx, s.db, profile.ID)
	if err != nil {
		return domain.Summary{}, err
	}

	today := usagedomain.Day(now)
	questionsToday := 0
	activeDays := make(map[string]struct{}, len(records))
	for _, record := range records {
		if record.QuestionCount == 0 {
			continue
		}
		activeDays[record.Day] = struct{}{}
		if record.Day == today {
			questionsToday = record.QuestionCount
		}
	}

	decision := usagedomain.Evaluate(profile.DailyQuestionLimit, questionsToday, profile.SubscriptionStatus.Paid())
	summary := domain.Summary{
		QuestionsToday:  questionsToday,
		Remaining:       decision.Remaining,
		Limit:           decision.Limit,
		CompletedPapers: len(papers),
		StreakDays:      streak(activeDays, now),
		ComputedAt:      now,
	}

	s.cache.Set(identityKey, summary, summaryTTL)
	return summary, nil
}

// streak counts consecutive active days ending today. A day with no
// questions yet does not break the run until it is over, so the count
// starts from yesterday when today is still blank.
func streak(activeDays map[string]struct{}, now time.Time) int {
	day := now.UTC()
	if _, ok := activeDays[usagedomain.Day(day)]; !ok {
		day = day.AddDate(0, 0, -1)
	}

	count := 0
	for count < streakWindowDays {
		if _, ok := activeDays[usagedomain.Day(day)]; !ok {
			break
		}
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}
