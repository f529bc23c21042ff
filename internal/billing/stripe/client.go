package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elevenplus/tutor/internal/config"
)

type checkoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type portalSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type customerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client issues the handful of Stripe API calls the checkout flow needs.
type Client struct {
	apiKey  string
	priceID string
	baseURL string
	client  *http.Client
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(cfg.BillingAPIKey),
		priceID: strings.TrimSpace(cfg.BillingPriceID),
		baseURL: "https://api.stripe.com",
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

// CreateCustomer registers a billing customer carrying the identity key in
// metadata so webhook events can be matched back to a profile.
func (c *Client) CreateCustomer(ctx context.Context, identityKey, email string) (string, error) {
	values := url.Values{}
	values.Set("email", email)
	values.Set("metadata[identity_key]", identityKey)

	var customer customerResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/customers", values, "customer:"+identityKey, &customer); err != nil {
		return "", err
	}
	if customer.ID == "" {
		return "", errors.New("billing_response_invalid")
	}
	return customer.ID, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, identityKey, successURL, cancelURL string) (string, error) {
	values := url.Values{}
	values.Set("mode", "subscription")
	values.Set("customer", customerID)
	values.Set("line_items[0][price]", c.priceID)
	values.Set("line_items[0][quantity]", "1")
	values.Set("success_url", successURL)
	values.Set("cancel_url", cancelURL)
	values.Set("metadata[identity_key]", identityKey)

	var session checkoutSessionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, "", &session); err != nil {
		return "", err
	}
	if session.URL == "" {
		return "", errors.New("billing_response_invalid")
	}
	return session.URL, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	values := url.Values{}
	values.Set("customer", customerID)
	values.Set("return_url", returnURL)

	var session portalSessionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/billing_portal/sessions", values, "", &session); err != nil {
		return "", err
	}
	if session.URL == "" {
		return "", errors.New("billing_response_invalid")
	}
	return session.URL, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, values url.Values, idempotencyKey string, out any) error {
	if c.apiKey == "" {
		return errors.New("billing_not_configured")
	}

	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return errors.New("billing_request_failed")
		}
		message := strings.TrimSpace(apiErr.Error.Message)
		if message == "" {
			message = "billing_request_failed"
		}
		return errors.New(message)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
