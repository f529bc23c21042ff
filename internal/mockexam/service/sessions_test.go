package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevenplus/tutor/internal/clock"
	"github.com/elevenplus/tutor/internal/mockexam/domain"
)

func TestSessionLifecycle(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	manager := NewSessionManager(clk)

	session, err := manager.Start("user_1", "paper-3a", 40*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionRunning, session.State)
	assert.Equal(t, 40*time.Minute, session.Remaining(clk.Now()))

	clk.Advance(10 * time.Minute)
	got, err := manager.Get("user_1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionRunning, got.State)
	assert.Equal(t, 30*time.Minute, got.Remaining(clk.Now()))

	finished, err := manager.Finish("user_1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFinished, finished.State)
	require.NotNil(t, finished.FinishedAt)
}

func TestSessionExpiresAtDeadline(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	manager := NewSessionManager(clk)

	session, err := manager.Start("user_1", "paper-3a", 40*time.Minute)
	require.NoError(t, err)

	clk.Advance(40 * time.Minute)
	got, err := manager.Get("user_1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, got.State)
	assert.Zero(t, got.Remaining(clk.Now()))

	// Finishing after expiry is refused.
	_, err = manager.Finish("user_1", session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotRunning)
}

func TestStartReturnsRunningSessionForSamePaper(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	manager := NewSessionManager(clk)

	first, err := manager.Start("user_1", "paper-3a", 40*time.Minute)
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	second, err := manager.Start("user_1", "paper-3a", 40*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different paper gets its own session.
	other, err := manager.Start("user_1", "paper-4b", 40*time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestStartReclaimsTerminalSessions(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	manager := NewSessionManager(clk)

	expired, err := manager.Start("user_1", "paper-3a", 40*time.Minute)
	require.NoError(t, err)
	finished, err := manager.Start("user_1", "paper-4b", 40*time.Minute)
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	_, err = manager.Finish("user_1", finished.ID)
	require.NoError(t, err)

	// At the deadline both sessions are terminal but still readable.
	clk.Advance(30 * time.Minute)
	got, err := manager.Get("user_1", expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, got.State)

	fresh, err := manager.Start("user_1", "paper-3a", 40*time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, expired.ID, fresh.ID)
	assert.Len(t, manager.sessions, 3)

	// Past the retention window the next Start reclaims everything that
	// is no longer running.
	clk.Advance(2 * time.Hour)
	_, err = manager.Start("user_1", "paper-5c", 40*time.Minute)
	require.NoError(t, err)
	assert.Len(t, manager.sessions, 1)

	_, err = manager.Get("user_1", expired.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionScopedToOwner(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	manager := NewSessionManager(clk)

	session, err := manager.Start("user_1", "paper-3a", 40*time.Minute)
	require.NoError(t, err)

	_, err = manager.Get("user_2", session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = manager.Finish("user_2", session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
