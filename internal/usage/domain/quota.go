package domain

import (
	"context"
	"errors"
)

// Decision is the outcome of a quota evaluation. Remaining is never
// negative even if a stored count somehow exceeds the limit.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Reason    string `json:"reason,omitempty"`
}

// Denial copy shown to the user. Paid users are told when the cap
// resets; free users are nudged toward the paid tier.
const (
	ReasonPaidCapReached = "Daily limit reached. Resets at midnight."
	ReasonFreeCapReached = "Free tier limit reached. Upgrade for 100 questions/day!"
)

// Evaluate is the pure quota rule: allowed iff used < limit. The paid
// flag only selects the denial copy, never the outcome.
func Evaluate(limit, used int, paid bool) Decision {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   used < limit,
		Remaining: remaining,
		Limit:     limit,
	}
	if !d.Allowed {
		if paid {
			d.Reason = ReasonPaidCapReached
		} else {
			d.Reason = ReasonFreeCapReached
		}
	}
	return d
}

type Service interface {
	// Check reports whether the caller may answer another question today.
	// It never mutates the ledger.
	Check(ctx context.Context, identityKey, email string) (Decision, error)
	// Consume atomically records one answered question, denying with
	// ErrQuotaExhausted when the daily limit is already spent. It never
	// pushes the count past the limit, regardless of concurrency.
	Consume(ctx context.Context, identityKey, email string) (Decision, error)
}

var ErrQuotaExhausted = errors.New("quota_exhausted")
