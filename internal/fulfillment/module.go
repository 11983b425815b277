package fulfillment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"pawtrait_backend/internal/fulfillment/client"
	"pawtrait_backend/internal/fulfillment/service"
	apphttp "pawtrait_backend/internal/http"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// signatureHeader carries the provider's HMAC over the raw body, prefixed
// with the algorithm: "sha256=<hex>".
const signatureHeader = "X-Pfy-Signature"

const maxWebhookBody = 1 << 20 // 1 MiB

// eventOrderUpdated is the provider notification for an order status change.
const eventOrderUpdated = "order:updated"

type webhookEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Resource struct {
		ID   string `json:"id"`
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	} `json:"resource"`
}

// Module is the fulfillment bounded context module implementing http.Module.
// It owns the print-provider client, the mockup/submission service, and the
// inbound status webhook.
type Module struct {
	svc    *service.Service
	secret string
	log    *logger.Logger
}

// NewModule creates the fulfillment module.
func NewModule(cfg config.FulfillmentConfig, log *logger.Logger) *Module {
	providerClient := client.New(cfg, log)
	return &Module{
		svc:    service.New(providerClient, cfg.IsFulfillmentEnabled(), log),
		secret: cfg.GetFulfillmentWebhookSecret(),
		log:    log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "fulfillment"
}

// Service returns the fulfillment service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.svc
}

// RegisterRoutes mounts the provider webhook endpoint. The path is
// registered with the provider and stays outside the versioned API.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.POST("/api/webhooks/fulfillment", m.handleWebhook)
}

// handleWebhook verifies the provider signature and applies order status
// changes. Unknown event types are acknowledged so the provider stops
// redelivering them.
func (m *Module) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	if !verifySignature(m.secret, body, c.GetHeader(signatureHeader)) {
		m.log.Warn("fulfillment webhook signature rejected", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	if event.Type != eventOrderUpdated {
		m.log.Debug("fulfillment webhook event ignored", "type", event.Type, "event_id", event.ID)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if event.Resource.ID == "" || event.Resource.Data.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed resource"})
		return
	}

	if err := m.svc.HandleStatusUpdate(c.Request.Context(), event.Resource.ID, event.Resource.Data.Status); err != nil {
		m.log.Error("fulfillment webhook processing failed", "provider_order_id", event.Resource.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func verifySignature(secret string, payload []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	provided := strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(provided))
}

var _ apphttp.Module = (*Module)(nil)
