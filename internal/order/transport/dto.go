package transport

import (
	"time"

	"pawtrait_backend/internal/order/repository"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// TimeRange selects payment sessions created within the last N hours.
type TimeRange struct {
	Hours int `json:"hours" validate:"omitempty,min=1,max=720"`
}

// ReconcileRequest triggers reconciliation for explicit session ids or for a
// recent time window. Exactly one of the two should be set; session ids win
// when both are present.
type ReconcileRequest struct {
	SessionIDs []string   `json:"sessionIds" validate:"omitempty,max=100,dive,min=1"`
	TimeRange  *TimeRange `json:"timeRange"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ArtworkSummary is the artwork slice shown on the order-confirmation page.
type ArtworkSummary struct {
	ID           uuid.UUID `json:"id"`
	PetName      string    `json:"petName,omitempty"`
	PreviewImage string    `json:"previewImage,omitempty"`
	AccessToken  string    `json:"accessToken,omitempty"`
}

// OrderSummaryResponse is the customer-facing order view.
type OrderSummaryResponse struct {
	OrderNumber       string                      `json:"orderNumber"`
	OrderID           uuid.UUID                   `json:"orderId"`
	CustomerEmail     string                      `json:"customerEmail"`
	CustomerName      string                      `json:"customerName"`
	ProductType       string                      `json:"productType"`
	ProductSize       string                      `json:"productSize"`
	PriceCents        int64                       `json:"priceCents"`
	OrderStatus       string                      `json:"orderStatus"`
	EstimatedDelivery string                      `json:"estimatedDelivery"`
	CreatedAt         time.Time                   `json:"createdAt"`
	Artwork           *ArtworkSummary             `json:"artwork,omitempty"`
	ShippingAddress   *repository.ShippingAddress `json:"shippingAddress,omitempty"`
	Fulfillment       *FulfillmentView            `json:"fulfillment,omitempty"`
}

// FulfillmentView exposes the fulfillment-provider linkage on an order.
type FulfillmentView struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// ReconcileResultResponse is one session's repair outcome within a batch.
type ReconcileResultResponse struct {
	SessionID string    `json:"sessionId"`
	Status    string    `json:"status"`
	OrderID   uuid.UUID `json:"orderId,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ReconcileResponse is the batch reconciliation outcome.
type ReconcileResponse struct {
	Reconciled int                       `json:"reconciled"`
	Results    []ReconcileResultResponse `json:"results"`
}
