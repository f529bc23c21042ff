// Package stripe adapts Stripe webhook deliveries and API calls to the
// billing domain. Only the raw HTTPS API is used; the official SDK pulls
// in far more surface than the four endpoints needed here.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elevenplus/tutor/internal/billing/domain"
	"github.com/elevenplus/tutor/internal/config"
)

type Adapter struct {
	webhookSecret string
}

func NewAdapter(cfg config.Config) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(cfg.BillingWebhookSecret)}
}

// Verify checks the Stripe-Signature header against the payload. Any v1
// signature in the header may match; Stripe sends several during secret
// rotation.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return domain.ErrInvalidSignature
}

// Parse maps a verified Stripe event onto the domain event union. Event
// types outside the subscription lifecycle return ErrEventIgnored.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return a.parseCheckoutSession(event, payload)
	case "customer.subscription.updated":
		return a.parseSubscription(event, payload, domain.EventSubscriptionUpdated)
	case "customer.subscription.deleted":
		return a.parseSubscription(event, payload, domain.EventSubscriptionDeleted)
	case "invoice.payment_failed":
		return a.parseInvoice(event, payload)
	default:
		return nil, domain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
	Created      int64             `json:"created"`
}

type stripeSubscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
}

type stripeInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Created      int64  `json:"created"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (*domain.Event, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.Customer) == "" {
		return nil, domain.ErrInvalidEvent
	}

	return &domain.Event{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            domain.EventCheckoutCompleted,
		CustomerID:      session.Customer,
		SubscriptionID:  session.Subscription,
		IdentityKey:     strings.TrimSpace(session.Metadata["identity_key"]),
		OccurredAt:      timestamp(session.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func (a *Adapter) parseSubscription(event stripeEvent, payload []byte, eventType domain.EventType) (*domain.Event, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(sub.Customer) == "" {
		return nil, domain.ErrInvalidEvent
	}

	return &domain.Event{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            eventType,
		CustomerID:      sub.Customer,
		SubscriptionID:  sub.ID,
		ProviderStatus:  strings.TrimSpace(sub.Status),
		// The subscription object's created field is its original creation
		// time, not the time of this change. Ordering against other events
		// only works off the envelope timestamp.
		OccurredAt: timestamp(event.Created, 0),
		RawPayload:      payload,
	}, nil
}

func (a *Adapter) parseInvoice(event stripeEvent, payload []byte) (*domain.Event, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(invoice.Customer) == "" {
		return nil, domain.ErrInvalidEvent
	}

	return &domain.Event{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            domain.EventPaymentFailed,
		CustomerID:      invoice.Customer,
		SubscriptionID:  invoice.Subscription,
		OccurredAt:      timestamp(event.Created, invoice.Created),
		RawPayload:      payload,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, domain.ErrInvalidSignature
	}
	return timestamp, signatures, nil
}

func timestamp(primary, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
