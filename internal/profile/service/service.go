package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/clock"
	"github.com/elevenplus/tutor/internal/config"
	"github.com/elevenplus/tutor/internal/profile/domain"
	"github.com/elevenplus/tutor/pkg/db"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Tiers *config.TierConfigHolder
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	tiers *config.TierConfigHolder
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("profile.service"),
		genID: p.GenID,
		clock: p.Clock,
		tiers: p.Tiers,
		repo:  p.Repo,
	}
}

func (s *Service) EnsureProfile(ctx context.Context, identityKey, email string) (domain.UserProfile, error) {
	identityKey = strings.TrimSpace(identityKey)
	if identityKey == "" {
		return domain.UserProfile{}, domain.ErrInvalidIdentityKey
	}

	existing, err := s.repo.FindByIdentityKey(ctx, s.db, identityKey)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	now := s.clock.Now()
	profile := domain.UserProfile{
		ID:                 s.genID.Generate(),
		IdentityKey:        identityKey,
		Email:              strings.TrimSpace(email),
		SubscriptionStatus: domain.StatusFree,
		DailyQuestionLimit: s.tiers.Current().FreeDailyLimit,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, &profile); err != nil {
		// A concurrent first request may have created the row already.
		if db.IsDuplicateKeyErr(err) {
			winner, ferr := s.repo.FindByIdentityKey(ctx, s.db, identityKey)
			if ferr != nil {
				return domain.UserProfile{}, ferr
			}
			if winner != nil {
				return *winner, nil
			}
		}
		return domain.UserProfile{}, err
	}

	s.log.Info("profile created",
		zap.String("identity_key", identityKey),
		zap.String("profile_id", profile.ID.String()),
	)
	return profile, nil
}

func (s *Service) GetByIdentity(ctx context.Context, identityKey string) (domain.UserProfile, error) {
	identityKey = strings.TrimSpace(identityKey)
	if identityKey == "" {
		return domain.UserProfile{}, domain.ErrInvalidIdentityKey
	}

	profile, err := s.repo.FindByIdentityKey(ctx, s.db, identityKey)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if profile == nil {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return *profile, nil
}
