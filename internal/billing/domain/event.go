package domain

import (
	"errors"
	"time"
)

// EventType classifies the provider notifications the reconciler acts on.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventPaymentFailed       EventType = "payment_failed"
)

// Event is a provider-agnostic billing notification after adapter parsing.
// Exactly the fields the reconciler needs survive; the raw payload is kept
// for audit.
type Event struct {
	Provider        string
	ProviderEventID string
	Type            EventType

	// CustomerID is the provider customer reference profiles are matched
	// by, except for checkout completion which also carries IdentityKey
	// in session metadata.
	CustomerID     string
	SubscriptionID string
	IdentityKey    string

	// ProviderStatus is the provider's own subscription status string,
	// only set for subscription update events.
	ProviderStatus string

	OccurredAt time.Time
	RawPayload []byte
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
)
