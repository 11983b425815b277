package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	apphttp "pawtrait_backend/internal/http"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// signatureHeader is the request header carrying the webhook signature.
const signatureHeader = "Webhook-Signature"

// maxWebhookBody caps the raw payload size read from the provider.
const maxWebhookBody = 1 << 20 // 1 MiB

// eventCheckoutCompleted is the only event type the system acts on; all
// other event types are acknowledged and ignored.
const eventCheckoutCompleted = "checkout.session.completed"

// CheckoutCompletedHandler processes a paid checkout session. Implemented by
// the order service so a webhook and a reconciliation repair share one code
// path. Processing must be idempotent: the provider retries deliveries.
type CheckoutCompletedHandler interface {
	HandleCheckoutCompleted(ctx context.Context, session *CheckoutSession) error
}

type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Module is the payment bounded context module implementing http.Module.
// It owns the provider client and the inbound webhook endpoint.
type Module struct {
	client *HTTPClient
	secret string
	log    *logger.Logger
	orders CheckoutCompletedHandler // optional until wired
}

// NewModule creates the payment module.
func NewModule(cfg config.PaymentConfig, log *logger.Logger) *Module {
	return &Module{
		client: NewHTTPClient(cfg, log),
		secret: cfg.GetPaymentWebhookSecret(),
		log:    log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "payment"
}

// Client returns the provider client for cross-module wiring.
func (m *Module) Client() Client {
	return m.client
}

// SetCheckoutCompletedHandler injects the order-side webhook processor.
func (m *Module) SetCheckoutCompletedHandler(handler CheckoutCompletedHandler) {
	m.orders = handler
}

// RegisterRoutes mounts the webhook endpoint. It lives outside the versioned
// API group: the path is registered with the provider and never changes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.POST("/api/webhooks/payment", m.handleWebhook)
}

// handleWebhook verifies the signature and dispatches the event. Signature
// verification happens on the raw body before any parsing or state change.
func (m *Module) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	if err := VerifySignature(m.secret, body, c.GetHeader(signatureHeader), time.Now()); err != nil {
		m.log.Warn("payment webhook signature rejected", "error", err, "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	if event.Type != eventCheckoutCompleted {
		m.log.Debug("payment webhook event ignored", "type", event.Type, "event_id", event.ID)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var session CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil || session.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed session object"})
		return
	}

	if m.orders == nil {
		m.log.Error("payment webhook received but no order handler wired", "session_id", session.ID)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not ready"})
		return
	}

	if err := m.orders.HandleCheckoutCompleted(c.Request.Context(), &session); err != nil {
		// Non-2xx makes the provider redeliver; processing is idempotent.
		m.log.Error("payment webhook processing failed", "session_id", session.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	m.log.Info("payment webhook processed", "session_id", session.ID, "event_id", event.ID)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

var _ apphttp.Module = (*Module)(nil)
