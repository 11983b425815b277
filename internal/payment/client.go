// Package payment provides the payment-provider collaborator: an HTTP client
// for checkout sessions and the inbound payment webhook.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"
)

// ErrSessionNotFound is returned when the provider has no record of the
// requested checkout session. Reconciliation treats this as a definitive
// "nothing to repair", never as a transient failure.
var ErrSessionNotFound = errors.New("payment: checkout session not found")

// ErrShippingUnavailable is returned when the provider refuses to expand
// shipping details for a session class. Callers proceed without shipping.
var ErrShippingUnavailable = errors.New("payment: shipping details unavailable for this session")

// errRequestRejected marks a 4xx rejection from the provider, typically a
// restricted field expansion on live-mode sessions.
var errRequestRejected = errors.New("payment: provider rejected request")

// Payment status values reported by the provider.
const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// CustomerDetails is the customer identity attached to a session.
type CustomerDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Address is a provider shipping address.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// ShippingDetails is the shipping block of a session, when expandable.
type ShippingDetails struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}

// CheckoutSession is the provider's authoritative view of one payment.
type CheckoutSession struct {
	ID              string            `json:"id"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntentID string            `json:"payment_intent"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
	Metadata        map[string]string `json:"metadata"`
	CreatedUnix     int64             `json:"created"`
}

// Paid reports whether the provider considers the session settled.
func (s *CheckoutSession) Paid() bool { return s.PaymentStatus == StatusPaid }

// OrderMetadata is the order-shaping metadata the checkout flow attaches to
// every session.
type OrderMetadata struct {
	ArtworkID    string
	ProductType  string
	Size         string
	ImageURL     string
	CustomerName string
	PetName      string
}

// ParseOrderMetadata extracts order metadata from a session. Returns false
// when the session carries no usable metadata; reconciliation then records a
// per-session "no metadata" result instead of guessing.
func ParseOrderMetadata(s *CheckoutSession) (OrderMetadata, bool) {
	if s == nil || len(s.Metadata) == 0 {
		return OrderMetadata{}, false
	}
	meta := OrderMetadata{
		ArtworkID:    s.Metadata["artworkId"],
		ProductType:  s.Metadata["productType"],
		Size:         s.Metadata["size"],
		ImageURL:     s.Metadata["imageUrl"],
		CustomerName: s.Metadata["customerName"],
		PetName:      s.Metadata["petName"],
	}
	if meta.ProductType == "" || meta.Size == "" {
		return OrderMetadata{}, false
	}
	return meta, true
}

// Client is the outbound payment-provider surface the rest of the system
// depends on.
type Client interface {
	// GetCheckoutSession fetches the authoritative session state.
	// Returns ErrSessionNotFound when the provider has no such session.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	// GetSessionShipping fetches the session's shipping details. May return
	// ErrShippingUnavailable for session classes whose shipping block cannot
	// be expanded; callers must degrade gracefully.
	GetSessionShipping(ctx context.Context, sessionID string) (*ShippingDetails, error)
	// ListRecentSessions lists sessions created at or after the cutoff,
	// newest first, for the reconciliation sweep.
	ListRecentSessions(ctx context.Context, since time.Time) ([]CheckoutSession, error)
}

// HTTPClient talks to the provider's REST API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	log        *logger.Logger
}

// NewHTTPClient creates a payment API client from configuration.
func NewHTTPClient(cfg config.PaymentConfig, log *logger.Logger) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    cfg.GetPaymentAPIBaseURL(),
		secretKey:  cfg.GetPaymentSecretKey(),
		log:        log,
	}
}

var _ Client = (*HTTPClient)(nil)

// GetCheckoutSession fetches one session by id.
func (c *HTTPClient) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	reqURL := fmt.Sprintf("%s/v1/checkout/sessions/%s", c.baseURL, url.PathEscape(sessionID))

	var session CheckoutSession
	if err := c.doGet(ctx, reqURL, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionShipping fetches the session with its shipping block expanded.
// The provider rejects the expansion for some live-mode session classes;
// that rejection maps to ErrShippingUnavailable.
func (c *HTTPClient) GetSessionShipping(ctx context.Context, sessionID string) (*ShippingDetails, error) {
	params := url.Values{}
	params.Add("expand[]", "shipping_details")
	reqURL := fmt.Sprintf("%s/v1/checkout/sessions/%s?%s", c.baseURL, url.PathEscape(sessionID), params.Encode())

	var payload struct {
		ShippingDetails *ShippingDetails `json:"shipping_details"`
	}
	if err := c.doGet(ctx, reqURL, &payload); err != nil {
		if errors.Is(err, errRequestRejected) {
			return nil, ErrShippingUnavailable
		}
		return nil, err
	}
	if payload.ShippingDetails == nil {
		return nil, ErrShippingUnavailable
	}
	return payload.ShippingDetails, nil
}

// ListRecentSessions lists sessions created within the sweep window.
func (c *HTTPClient) ListRecentSessions(ctx context.Context, since time.Time) ([]CheckoutSession, error) {
	params := url.Values{}
	params.Set("created[gte]", fmt.Sprintf("%d", since.Unix()))
	params.Set("limit", "100")
	reqURL := fmt.Sprintf("%s/v1/checkout/sessions?%s", c.baseURL, params.Encode())

	var payload struct {
		Data []CheckoutSession `json:"data"`
	}
	if err := c.doGet(ctx, reqURL, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *HTTPClient) doGet(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("payment api request failed", "error", err, "url", reqURL)
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrSessionNotFound
	case http.StatusUnauthorized:
		c.log.Error("payment api unauthorized", "status", resp.StatusCode)
		return fmt.Errorf("unauthorized: invalid secret key")
	case http.StatusBadRequest, http.StatusForbidden:
		c.log.Warn("payment api rejected request", "status", resp.StatusCode, "url", reqURL)
		return errRequestRejected
	default:
		c.log.Error("payment api upstream error", "status", resp.StatusCode, "url", reqURL)
		return fmt.Errorf("upstream error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
