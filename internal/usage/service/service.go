package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/clock"
	"github.com/elevenplus/tutor/internal/observability/metrics"
	profiledomain "github.com/elevenplus/tutor/internal/profile/domain"
	"github.com/elevenplus/tutor/internal/usage/domain"
	"github.com/elevenplus/tutor/pkg/db"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Profiles profiledomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	profiles profiledomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("usage.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		profiles: p.Profiles,
		metrics:  p.Metrics,
	}
}

func (s *Service) Check(ctx context.Context, identityKey, email string) (domain.Decision, error) {
	profile, err := s.profiles.EnsureProfile(ctx, identityKey, email)
	if err != nil {
		return domain.Decision{}, err
	}

	day := domain.Day(s.clock.Now())
	record, err := s.repo.FindDay(ctx, s.db, profile.ID, day)
	if err != nil {
		return domain.Decision{}, err
	}

	used := 0
	if record != nil {
		used = record.QuestionCount
	}

	decision := domain.Evaluate(profile.DailyQuestionLimit, used, profile.SubscriptionStatus.Paid())
	s.metrics.RecordQuotaCheck(ctx, string(profile.SubscriptionStatus))
	return decision, nil
}

func (s *Service) Consume(ctx context.Context, identityKey, email string) (domain.Decision, error) {
	profile, err := s.profiles.EnsureProfile(ctx, identityKey, email)
	if err != nil {
		return domain.Decision{}, err
	}

	day := domain.Day(s.clock.Now())
	limit := profile.DailyQuestionLimit
	paid := profile.SubscriptionStatus.Paid()

	// Two passes at most: the first UPDATE misses only when no row
	// exists yet, and after the insert (or losing the insert race) the
	// second UPDATE settles it.
	for attempt := 0; attempt < 2; attempt++ {
		updated, err := s.repo.IncrementIfBelow(ctx, s.db, profile.ID, day, limit)
		if err != nil {
			return domain.Decision{}, err
		}
		if updated {
			record, err := s.repo.FindDay(ctx, s.db, profile.ID, day)
			if err != nil {
				return domain.Decision{}, err
			}
			used := limit
			if record != nil {
				used = record.QuestionCount
			}
			decision := domain.Evaluate(limit, used, paid)
			decision.Allowed = true
			decision.Reason = ""
			s.metrics.RecordQuotaConsume(ctx, string(profile.SubscriptionStatus))
			return decision, nil
		}

		record, err := s.repo.FindDay(ctx, s.db, profile.ID, day)
		if err != nil {
			return domain.Decision{}, err
		}
		if record != nil {
			// Row exists and the guard rejected it, so the day is spent.
			break
		}
		if limit < 1 {
			break
		}

		now := s.clock.Now()
		first := domain.UsageRecord{
			ID:            s.genID.Generate(),
			UserID:        profile.ID,
			Day:           day,
			QuestionCount: 1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Insert(ctx, s.db, &first); err != nil {
			if db.IsDuplicateKeyErr(err) {
				// Lost the first-question race. Retry the guarded UPDATE.
				continue
			}
			return domain.Decision{}, err
		}

		decision := domain.Evaluate(limit, 1, paid)
		decision.Allowed = true
		decision.Reason = ""
		s.metrics.RecordQuotaConsume(ctx, string(profile.SubscriptionStatus))
		return decision, nil
	}

	s.metrics.RecordQuotaDenied(ctx, string(profile.SubscriptionStatus))
	s.log.Debug("quota exhausted",
		zap.String("identity_key", identityKey),
		zap.String("day", day),
		zap.Int("limit", limit),
	)
	return domain.Evaluate(limit, limit, paid), domain.ErrQuotaExhausted
}
