package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/elevenplus/tutor/internal/billing/domain"
	"github.com/elevenplus/tutor/internal/config"
	mockexamdomain "github.com/elevenplus/tutor/internal/mockexam/domain"
	profiledomain "github.com/elevenplus/tutor/internal/profile/domain"
	usagedomain "github.com/elevenplus/tutor/internal/usage/domain"
)

var Module = fx.Module("migration",
	fx.Invoke(Migrate),
)

// Migrate runs the versioned SQL migrations on postgres. Other dialects
// (sqlite for local development, mysql) fall back to gorm's AutoMigrate
// since the migration files use postgres-specific types.
func Migrate(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	if cfg.DBType == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("migrations applied", zap.String("dialect", cfg.DBType))
		return nil
	}

	if err := db.AutoMigrate(
		&profiledomain.UserProfile{},
		&usagedomain.UsageRecord{},
		&billingdomain.WebhookEvent{},
		&mockexamdomain.CompletedPaper{},
	); err != nil {
		return err
	}
	log.Info("schema synchronized", zap.String("dialect", cfg.DBType))
	return nil
}
