package domain

import "time"

// SessionState is the lifecycle of one timed exam attempt.
type SessionState string

const (
	SessionPending  SessionState = "pending"
	SessionRunning  SessionState = "running"
	SessionFinished SessionState = "finished"
	SessionExpired  SessionState = "expired"
)

// ExamSession is a single timed attempt at a paper. Expiry is evaluated
// lazily against the clock on read, so an abandoned session needs no
// background sweeper to end.
type ExamSession struct {
	ID          string       `json:"id"`
	IdentityKey string       `json:"-"`
	PaperID     string       `json:"paper_id"`
	State       SessionState `json:"state"`
	StartedAt   time.Time    `json:"started_at"`
	Deadline    time.Time    `json:"deadline"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

// Remaining reports how much exam time is left at now. Zero once the
// deadline passed or the session ended.
func (s ExamSession) Remaining(now time.Time) time.Duration {
	if s.State != SessionRunning {
		return 0
	}
	left := s.Deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether a running session's deadline has passed.
func (s ExamSession) Expired(now time.Time) bool {
	return s.State == SessionRunning && !now.Before(s.Deadline)
}
