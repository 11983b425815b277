// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"pawtrait_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Artwork Domain Events
// =============================================================================

// ArtworkCreated is published when a customer submits their photos and the
// generation pipeline is about to start.
type ArtworkCreated struct {
	BaseEvent
	ArtworkID     uuid.UUID `json:"artworkId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	PetName       string    `json:"petName,omitempty"`
	AccessToken   string    `json:"accessToken"`
}

func (e ArtworkCreated) EventName() string { return "artwork.created" }

// ArtworkDeferred is published when a customer leaves an email before
// providing photos (the email-first capture flow).
type ArtworkDeferred struct {
	BaseEvent
	ArtworkID     uuid.UUID `json:"artworkId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	UploadToken   string    `json:"uploadToken"`
}

func (e ArtworkDeferred) EventName() string { return "artwork.deferred" }

// ArtworkCompleted is published on the first transition into the completed
// generation step when human review is disabled. It triggers the customer
// completion email.
type ArtworkCompleted struct {
	BaseEvent
	ArtworkID     uuid.UUID `json:"artworkId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	PetName       string    `json:"petName,omitempty"`
	AccessToken   string    `json:"accessToken"`
	ImageURL      string    `json:"imageUrl"`
}

func (e ArtworkCompleted) EventName() string { return "artwork.completed" }

// GenerationFailed is published when an external AI job fails and the artwork
// enters the terminal failed step.
type GenerationFailed struct {
	BaseEvent
	ArtworkID uuid.UUID `json:"artworkId"`
	Step      string    `json:"step"`
	Reason    string    `json:"reason"`
}

func (e GenerationFailed) EventName() string { return "artwork.generation.failed" }

// =============================================================================
// Review Domain Events
// =============================================================================

// ReviewCreated is published when a new admin review checkpoint is created.
type ReviewCreated struct {
	BaseEvent
	ReviewID      uuid.UUID `json:"reviewId"`
	ArtworkID     uuid.UUID `json:"artworkId"`
	ReviewType    string    `json:"reviewType"`
	CustomerName  string    `json:"customerName"`
	PetName       string    `json:"petName,omitempty"`
	ImageURL      string    `json:"imageUrl"`
	GenerationRef string    `json:"generationRef,omitempty"`
}

func (e ReviewCreated) EventName() string { return "review.created" }

// ReviewApproved is published after an admin approves a review. The
// notification module sends the customer completion email for artwork proofs.
type ReviewApproved struct {
	BaseEvent
	ReviewID      uuid.UUID `json:"reviewId"`
	ArtworkID     uuid.UUID `json:"artworkId"`
	ReviewType    string    `json:"reviewType"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	PetName       string    `json:"petName,omitempty"`
	AccessToken   string    `json:"accessToken"`
	ImageURL      string    `json:"imageUrl"`
}

func (e ReviewApproved) EventName() string { return "review.approved" }

// ReviewRejected is published after an admin rejects a review.
type ReviewRejected struct {
	BaseEvent
	ReviewID   uuid.UUID `json:"reviewId"`
	ArtworkID  uuid.UUID `json:"artworkId"`
	ReviewType string    `json:"reviewType"`
	ReviewedBy string    `json:"reviewedBy"`
	Notes      string    `json:"notes,omitempty"`
}

func (e ReviewRejected) EventName() string { return "review.rejected" }

// =============================================================================
// Order Domain Events
// =============================================================================

// OrderPaid is published when a payment-provider session is confirmed paid,
// either by webhook or by reconciliation.
type OrderPaid struct {
	BaseEvent
	OrderID       uuid.UUID `json:"orderId"`
	ArtworkID     uuid.UUID `json:"artworkId"`
	SessionID     string    `json:"sessionId"`
	ProductType   string    `json:"productType"`
	ProductSize   string    `json:"productSize"`
	PriceCents    int64     `json:"priceCents"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Reconciled    bool      `json:"reconciled"`
}

func (e OrderPaid) EventName() string { return "order.paid" }

// OrderStatusChanged is published when a fulfillment status update moves an
// order to a new status.
type OrderStatusChanged struct {
	BaseEvent
	OrderID       uuid.UUID `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	Status        string    `json:"status"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
}

func (e OrderStatusChanged) EventName() string { return "order.status.changed" }

// OrderFulfillmentSubmitted is published when a fulfillment order has been
// accepted by the print provider.
type OrderFulfillmentSubmitted struct {
	BaseEvent
	OrderID            uuid.UUID `json:"orderId"`
	FulfillmentOrderID string    `json:"fulfillmentOrderId"`
	Status             string    `json:"status"`
}

func (e OrderFulfillmentSubmitted) EventName() string { return "order.fulfillment.submitted" }
