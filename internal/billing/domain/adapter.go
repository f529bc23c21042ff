package domain

import (
	"context"
	"net/http"
)

// ProviderAdapter verifies and parses raw provider deliveries.
type ProviderAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
}

// ProviderClient issues outbound calls to the billing provider.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, identityKey, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, identityKey, successURL, cancelURL string) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
