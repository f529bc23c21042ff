package domain

import (
	"context"
	"errors"
	"net/http"
)

// Outcome describes what the reconciler did with a delivered event. Every
// outcome except a verification or parse failure is acknowledged to the
// provider with a 200 so delivery is not retried.
type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeStale      Outcome = "stale"
	OutcomeIgnored    Outcome = "ignored"
	OutcomeUnknownRef Outcome = "unknown_ref"
)

type Reconciler interface {
	// HandleWebhook verifies, parses and applies one provider delivery.
	// It returns an error only when the delivery itself is bad; state
	// no-ops (duplicates, stale or unmatchable events) are successful
	// outcomes.
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (Outcome, error)
}

type CheckoutSession struct {
	URL string `json:"url"`
}

type CheckoutService interface {
	// CreateCheckoutSession starts a subscription purchase, refusing when
	// the caller already has an active subscription.
	CreateCheckoutSession(ctx context.Context, identityKey, email string) (CheckoutSession, error)
	// CreatePortalSession opens the provider's self-service portal. The
	// caller must already be a billing customer.
	CreatePortalSession(ctx context.Context, identityKey string) (CheckoutSession, error)
}

var (
	ErrAlreadySubscribed = errors.New("already_subscribed")
	ErrNoBillingAccount  = errors.New("no_billing_account")
)
