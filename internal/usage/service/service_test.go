package service

import (
	"context"
	"errors"
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
	profiledomain "github.com/elevenplus/tutor/internal/profile/domain"
	profilerepo "github.com/elevenplus/tutor/internal/profile/repository"
	profilesvc "github.com/elevenplus/tutor/internal/profile/service"
	usagedomain "github.com/elevenplus/tutor/internal/usage/domain"
	usagerepo "github.com/elevenplus/tutor/internal/usage/repository"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&profiledomain.UserProfile{}, &usagedomain.UsageRecord{}))
	return db
}

func setupUsageService(t *testing.T, db *gorm.DB, clk clock.Clock, tiers config.TierConfig) usagedomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder := config.NewStaticTierConfigHolder(tiers)
	profiles := profilesvc.New(profilesvc.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Tiers: holder,
		Repo:  profilerepo.Provide(),
	})

	return New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     usagerepo.Provide(),
		Profiles: profiles,
	})
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		used          int
		paid          bool
		wantAllowed   bool
		wantRemaining int
		wantReason    string
	}{
		{name: "fresh free day", limit: 5, used: 0, wantAllowed: true, wantRemaining: 5},
		{name: "one left", limit: 5, used: 4, wantAllowed: true, wantRemaining: 1},
		{name: "at free limit", limit: 5, used: 5, wantAllowed: false, wantRemaining: 0,
			wantReason: usagedomain.ReasonFreeCapReached},
		{name: "over limit clamps remaining", limit: 5, used: 9, wantAllowed: false, wantRemaining: 0,
			wantReason: usagedomain.ReasonFreeCapReached},
		{name: "paid tier", limit: 100, used: 42, paid: true, wantAllowed: true, wantRemaining: 58},
		{name: "at paid limit", limit: 100, used: 100, paid: true, wantAllowed: false, wantRemaining: 0,
			wantReason: usagedomain.ReasonPaidCapReached},
		{name: "zero limit always denied", limit: 0, used: 0, wantAllowed: false, wantRemaining: 0,
			wantReason: usagedomain.ReasonFreeCapReached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usagedomain.Evaluate(tt.limit, tt.used, tt.paid)
			assert.Equal(t, tt.wantAllowed, got.Allowed)
			assert.Equal(t, tt.wantRemaining, got.Remaining)
			assert.Equal(t, tt.limit, got.Limit)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestCheckDoesNotMutateLedger(t *testing.T) {
	db := setupDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	svc := setupUsageService(t, db, clk, config.TierConfig{FreeDailyLimit: 5, ActiveDailyLimit: 100})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := svc.Check(ctx, "user_check", "check@example.com")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 5, decision.Remaining)
		assert.Equal(t, 5, decision.Limit)
	}

	var count int64
	require.NoError(t, db.Model(&usagedomain.UsageRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConsumeCountsDownToDenial(t *testing.T) {
	db := setupDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	svc := setupUsageService(t, db, clk, config.TierConfig{FreeDailyLimit: 3, ActiveDailyLimit: 100})
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		decision, err := svc.Consume(ctx, "user_consume", "consume@example.com")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, want, decision.Remaining)
		assert.Equal(t, 3, decision.Limit)
	}

	decision, err := svc.Consume(ctx, "user_consume", "consume@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, usagedomain.ErrQuotaExhausted))
	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.Remaining)
	assert.Equal(t, usagedomain.ReasonFreeCapReached, decision.Reason)

	var record usagedomain.UsageRecord
	require.NoError(t, db.Where("day = ?", "2026-03-09").Take(&record).Error)
	assert.Equal(t, 3, record.QuestionCount)
}

func TestConsumeNewDayResetsQuota(t *testing.T) {
	db := setupDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 23, 50, 0, 0, time.UTC))
	svc := setupUsageService(t, db, clk, config.TierConfig{FreeDailyLimit: 1, ActiveDailyLimit: 100})
	ctx := context.Background()

	_, err := svc.Consume(ctx, "user_rollover", "rollover@example.com")
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "user_rollover", "rollover@example.com")
	assert.True(t, errors.Is(err, usagedomain.ErrQuotaExhausted))

	clk.Advance(15 * time.Minute)

	decision, err := svc.Consume(ctx, "user_rollover", "rollover@example.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Zero(t, decision.Remaining)

	var days int64
	require.NoError(t, db.Model(&usagedomain.UsageRecord{}).Count(&days).Error)
	assert.Equal(t, int64(2), days)
}

func TestConsumeUsesProfileLimitForPaidTier(t *testing.T) {
	db := setupDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	svc := setupUsageService(t, db, clk, config.TierConfig{FreeDailyLimit: 5, ActiveDailyLimit: 100})
	ctx := context.Background()

	// Bootstrap the profile, then promote it the way the reconciler would.
	_, err := svc.Check(ctx, "user_paid", "paid@example.com")
	require.NoError(t, err)
	require.NoError(t, db.Model(&profiledomain.UserProfile{}).
		Where("identity_key = ?", "user_paid").
		Updates(map[string]any{"subscription_status": "active", "daily_question_limit": 100}).Error)

	decision, err := svc.Consume(ctx, "user_paid", "paid@example.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 99, decision.Remaining)
	assert.Equal(t, 100, decision.Limit)
}

func TestIncrementGuardStopsAtLimit(t *testing.T) {
	db := setupDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	repo := usagerepo.Provide()
	ctx := context.Background()

	userID := node.Generate()
	day := usagedomain.Day(clk.Now())
	require.NoError(t, repo.Insert(ctx, db, &usagedomain.UsageRecord{
		ID:            node.Generate(),
		UserID:        userID,
		Day:           day,
		QuestionCount: 1,
		CreatedAt:     clk.Now(),
		UpdatedAt:     clk.Now(),
	}))

	updated, err := repo.IncrementIfBelow(ctx, db, userID, day, 2)
	require.NoError(t, err)
	assert.True(t, updated)

	// At the limit now. Every further attempt must leave the row untouched.
	for i := 0; i < 3; i++ {
		updated, err = repo.IncrementIfBelow(ctx, db, userID, day, 2)
		require.NoError(t, err)
		assert.False(t, updated)
	}

	record, err := repo.FindDay(ctx, db, userID, day)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 2, record.QuestionCount)
}

func TestConsumeDistinctUsersIsolated(t *testing.T) {
	db := setupDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	svc := setupUsageService(t, db, clk, config.TierConfig{FreeDailyLimit: 1, ActiveDailyLimit: 100})
	ctx := context.Background()

	_, err := svc.Consume(ctx, "user_a", "a@example.com")
	require.NoError(t, err)
	_, err = svc.Consume(ctx, "user_a", "a@example.com")
	assert.True(t, errors.Is(err, usagedomain.ErrQuotaExhausted))

	decision, err := svc.Consume(ctx, "user_b", "b@example.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
