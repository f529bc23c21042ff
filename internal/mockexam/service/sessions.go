package service

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elevenplus/tutor/internal/clock"
	"github.com/elevenplus/tutor/internal/mockexam/domain"
)

// DefaultExamDuration matches the timed length of an eleven-plus paper.
const DefaultExamDuration = 40 * time.Minute

// terminalRetention is how long a finished or expired session stays
// readable before Start's sweep reclaims it.
const terminalRetention = time.Hour

// SessionManager tracks in-flight timed exam attempts in memory. Sessions
// are presentation state only; losing them on restart costs a user their
// countdown, never their quota or completion history.
type SessionManager struct {
	mu       sync.Mutex
	clock    clock.Clock
	sessions map[string]*domain.ExamSession
}

func NewSessionManager(clk clock.Clock) *SessionManager {
	return &SessionManager{
		clock:    clk,
		sessions: make(map[string]*domain.ExamSession),
	}
}

// Start begins a timed attempt. A still-running session for the same user
// and paper is returned instead of starting a parallel one.
func (m *SessionManager) Start(identityKey, paperID string, duration time.Duration) (domain.ExamSession, error) {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return domain.ExamSession{}, domain.ErrInvalidPaperID
	}
	if duration <= 0 {
		duration = DefaultExamDuration
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.sweepLocked(now)
	for _, session := range m.sessions {
		if session.IdentityKey == identityKey && session.PaperID == paperID && session.State == domain.SessionRunning {
			return *session, nil
		}
	}

	session := &domain.ExamSession{
		ID:          uuid.NewString(),
		IdentityKey: identityKey,
		PaperID:     paperID,
		State:       domain.SessionRunning,
		StartedAt:   now,
		Deadline:    now.Add(duration),
	}
	m.sessions[session.ID] = session
	return *session, nil
}

// Get returns the caller's session, transitioning it to expired first if
// its deadline has passed.
func (m *SessionManager) Get(identityKey, sessionID string) (domain.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.IdentityKey != identityKey {
		return domain.ExamSession{}, domain.ErrSessionNotFound
	}
	m.expireLocked(session, m.clock.Now())
	return *session, nil
}

// Finish ends a running session early, before its deadline.
func (m *SessionManager) Finish(identityKey, sessionID string) (domain.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.IdentityKey != identityKey {
		return domain.ExamSession{}, domain.ErrSessionNotFound
	}

	now := m.clock.Now()
	m.expireLocked(session, now)
	if session.State != domain.SessionRunning {
		return *session, domain.ErrSessionNotRunning
	}

	session.State = domain.SessionFinished
	session.FinishedAt = &now
	return *session, nil
}

// sweepLocked expires overdue sessions and drops terminal ones past their
// retention window, so the map stays bounded by recent activity.
func (m *SessionManager) sweepLocked(now time.Time) {
	for id, session := range m.sessions {
		m.expireLocked(session, now)
		if session.State == domain.SessionRunning {
			continue
		}
		if session.FinishedAt != nil && now.Sub(*session.FinishedAt) >= terminalRetention {
			delete(m.sessions, id)
		}
	}
}

func (m *SessionManager) expireLocked(session *domain.ExamSession, now time.Time) {
	if session.Expired(now) {
		session.State = domain.SessionExpired
		deadline := session.Deadline
		session.FinishedAt = &deadline
	}
}
