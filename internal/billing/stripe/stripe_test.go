package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevenplus/tutor/internal/billing/domain"
	"github.com/elevenplus/tutor/internal/config"
)

const testSecret = "whsec_test"

func newTestAdapter() *Adapter {
	return NewAdapter(config.Config{BillingWebhookSecret: testSecret})
}

func signPayload(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", timestamp, payload)))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	adapter := newTestAdapter()
	payload := []byte(`{"id":"evt_1"}`)
	headers := http.Header{}
	headers.Set("Stripe-Signature", signPayload(testSecret, time.Now().Unix(), payload))

	assert.NoError(t, adapter.Verify(context.Background(), payload, headers))
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	adapter := newTestAdapter()
	payload := []byte(`{"id":"evt_1"}`)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong secret", header: signPayload("whsec_other", time.Now().Unix(), payload)},
		{name: "tampered payload", header: signPayload(testSecret, time.Now().Unix(), []byte(`{"id":"evt_2"}`))},
		{name: "malformed header", header: "not-a-signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.header != "" {
				headers.Set("Stripe-Signature", tt.header)
			}
			err := adapter.Verify(context.Background(), payload, headers)
			assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		})
	}
}

func TestVerifyAcceptsRotatedSignatures(t *testing.T) {
	adapter := newTestAdapter()
	payload := []byte(`{"id":"evt_1"}`)
	ts := time.Now().Unix()

	// During secret rotation Stripe includes one v1 entry per secret.
	stale := signPayload("whsec_old", ts, payload)
	fresh := signPayload(testSecret, ts, payload)
	combined := stale + "," + fresh[len(fmt.Sprintf("t=%d,", ts)):]

	headers := http.Header{}
	headers.Set("Stripe-Signature", combined)
	assert.NoError(t, adapter.Verify(context.Background(), payload, headers))
}

func TestParseCheckoutSessionCompleted(t *testing.T) {
	adapter := newTestAdapter()
	payload := []byte(`{
		"id": "evt_checkout",
		"type": "checkout.session.completed",
		"created": 1767225600,
		"data": {"object": {
			"id": "cs_1",
			"customer": "cus_1",
			"subscription": "sub_1",
			"metadata": {"identity_key": "user_1"},
			"created": 1767225500
		}}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCheckoutCompleted, event.Type)
	assert.Equal(t, "evt_checkout", event.ProviderEventID)
	assert.Equal(t, "cus_1", event.CustomerID)
	assert.Equal(t, "sub_1", event.SubscriptionID)
	assert.Equal(t, "user_1", event.IdentityKey)
	assert.Equal(t, time.Unix(1767225500, 0).UTC(), event.OccurredAt)
}

func TestParseSubscriptionEvents(t *testing.T) {
	adapter := newTestAdapter()

	tests := []struct {
		stripeType string
		wantType   domain.EventType
	}{
		{stripeType: "customer.subscription.updated", wantType: domain.EventSubscriptionUpdated},
		{stripeType: "customer.subscription.deleted", wantType: domain.EventSubscriptionDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.stripeType, func(t *testing.T) {
			// The object's created field predates the event by months;
			// OccurredAt must come from the envelope.
			payload := []byte(fmt.Sprintf(`{
				"id": "evt_sub",
				"type": %q,
				"created": 1767225600,
				"data": {"object": {"id": "sub_1", "customer": "cus_1", "status": "past_due", "created": 1751328000}}
			}`, tt.stripeType))

			event, err := adapter.Parse(context.Background(), payload)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, event.Type)
			assert.Equal(t, "cus_1", event.CustomerID)
			assert.Equal(t, "sub_1", event.SubscriptionID)
			assert.Equal(t, "past_due", event.ProviderStatus)
			assert.Equal(t, time.Unix(1767225600, 0).UTC(), event.OccurredAt)
		})
	}
}

func TestParseInvoicePaymentFailed(t *testing.T) {
	adapter := newTestAdapter()
	payload := []byte(`{
		"id": "evt_inv",
		"type": "invoice.payment_failed",
		"created": 1767225600,
		"data": {"object": {"id": "in_1", "customer": "cus_1", "subscription": "sub_1", "created": 1767225000}}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, domain.EventPaymentFailed, event.Type)
	assert.Equal(t, "cus_1", event.CustomerID)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), event.OccurredAt)
}

func TestParseUnhandledTypeIgnored(t *testing.T) {
	adapter := newTestAdapter()
	payload := []byte(`{"id": "evt_x", "type": "invoice.paid", "data": {"object": {}}}`)

	_, err := adapter.Parse(context.Background(), payload)
	assert.ErrorIs(t, err, domain.ErrEventIgnored)
}

func TestParseMalformedPayload(t *testing.T) {
	adapter := newTestAdapter()

	_, err := adapter.Parse(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = adapter.Parse(context.Background(), []byte(`{"type": "checkout.session.completed"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}
