package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/clock"
	"github.com/elevenplus/tutor/internal/config"
	"github.com/elevenplus/tutor/internal/profile/domain"
	"github.com/elevenplus/tutor/internal/profile/repository"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbConn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&domain.UserProfile{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)),
		Tiers: config.NewStaticTierConfigHolder(config.TierConfig{
			FreeDailyLimit:   5,
			ActiveDailyLimit: 100,
			LapsedDailyLimit: 5,
		}),
		Repo: repository.Provide(),
	})
	return svc, dbConn
}

func TestEnsureProfileCreatesFreeTier(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	profile, err := svc.EnsureProfile(ctx, "auth0|alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFree, profile.SubscriptionStatus)
	assert.Equal(t, 5, profile.DailyQuestionLimit)
	assert.Nil(t, profile.LastEventAt)

	var count int64
	require.NoError(t, db.Model(&domain.UserProfile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureProfileIsIdempotent(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	first, err := svc.EnsureProfile(ctx, "auth0|alice", "alice@example.com")
	require.NoError(t, err)

	second, err := svc.EnsureProfile(ctx, "auth0|alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&domain.UserProfile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureProfileRejectsBlankIdentity(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.EnsureProfile(context.Background(), "   ", "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentityKey)
}

func TestEnsureProfileKeepsExistingSubscription(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	profile, err := svc.EnsureProfile(ctx, "auth0|alice", "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, db.Model(&domain.UserProfile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]any{
			"subscription_status":  domain.StatusActive,
			"daily_question_limit": 100,
		}).Error)

	again, err := svc.EnsureProfile(ctx, "auth0|alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, again.SubscriptionStatus)
	assert.Equal(t, 100, again.DailyQuestionLimit)
}

func TestGetByIdentity(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.GetByIdentity(ctx, "auth0|ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	created, err := svc.EnsureProfile(ctx, "auth0|alice", "alice@example.com")
	require.NoError(t, err)

	found, err := svc.GetByIdentity(ctx, "auth0|alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}
