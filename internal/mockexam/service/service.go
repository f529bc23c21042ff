package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/clock"
	"github.com/elevenplus/tutor/internal/mockexam/domain"
	profiledomain "github.com/elevenplus/tutor/internal/profile/domain"
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
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	profiles profiledomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("mockexam.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		profiles: p.Profiles,
	}
}

func (s *Service) MarkCompleted(ctx context.Context, identityKey string, req domain.MarkCompletedRequest) (domain.CompletedPaper, error) {
	paperID := strings.TrimSpace(req.PaperID)
	if paperID == "" {
		return domain.CompletedPaper{}, domain.ErrInvalidPaperID
	}

	profile, err := s.profiles.GetByIdentity(ctx, identityKey)
	if err != nil {
		return domain.CompletedPaper{}, err
	}

	paper := domain.CompletedPaper{
		ID:          s.genID.Generate(),
		UserID:      profile.ID,
		PaperID:     paperID,
		Score:       req.Score,
		CompletedAt: s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &paper); err != nil {
		// Completing the same paper twice keeps the original record.
		if db.IsDuplicateKeyErr(err) {
			existing, ferr := s.repo.FindByUserAndPaper(ctx, s.db, profile.ID, paperID)
			if ferr != nil {
				return domain.CompletedPaper{}, ferr
			}
			if existing != nil {
				return *existing, nil
			}
		}
		return domain.CompletedPaper{}, err
	}

	return paper, nil
}

func (s *Service) ListCompleted(ctx context.Context, identityKey string) ([]domain.CompletedPaper, error) {
	profile, err := s.profiles.GetByIdentity(ctx, identityKey)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, s.db, profile.ID)
}
