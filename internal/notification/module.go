// Package notification turns domain events into outbox rows and dispatches
// them as emails. Domain modules publish events; this module owns the
// templates, recipients, and retry bookkeeping, so approval and payment flows
// never block on a mail server.
package notification

import (
	"context"
	"fmt"
	"time"

	"pawtrait_backend/internal/catalog"
	"pawtrait_backend/internal/email"
	"pawtrait_backend/internal/events"
	apphttp "pawtrait_backend/internal/http"
	"pawtrait_backend/internal/notification/outbox"
	ordersvc "pawtrait_backend/internal/order/service"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	kindEmail = "email"

	TemplateMasterpieceCreating = "masterpiece_creating"
	TemplateMasterpieceReady    = "masterpiece_ready"
	TemplateOrderConfirmation   = "order_confirmation"
	TemplateOrderShipped        = "order_shipped"
	TemplateAdminReview         = "admin_review"
	TemplateUploadReminder      = "upload_reminder"
)

const (
	firstReminderDelay = 24 * time.Hour
	nextReminderDelay  = 72 * time.Hour
	maxUploadReminders = 3
)

// emailPayload is the stored outbox payload for every email template; unused
// fields stay empty per template.
type emailPayload struct {
	To                 string    `json:"to"`
	CustomerName       string    `json:"customerName,omitempty"`
	PetName            string    `json:"petName,omitempty"`
	ArtworkID          uuid.UUID `json:"artworkId,omitempty"`
	ArtworkURL         string    `json:"artworkUrl,omitempty"`
	UploadURL          string    `json:"uploadUrl,omitempty"`
	ReviewType         string    `json:"reviewType,omitempty"`
	ReviewURL          string    `json:"reviewUrl,omitempty"`
	OrderNumber        string    `json:"orderNumber,omitempty"`
	ProductDescription string    `json:"productDescription,omitempty"`
	EstimatedDelivery  string    `json:"estimatedDelivery,omitempty"`
	TrackingURL        string    `json:"trackingUrl,omitempty"`
	ReminderNumber     int       `json:"reminderNumber,omitempty"`
}

// Outbox is the persistence surface the module writes through.
// Implemented by *outbox.Repository.
type Outbox interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	ClaimDue(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string, nextRunAt time.Time) error
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// Module is the notification bounded context module.
type Module struct {
	dispatcher *Dispatcher
	cfg        config.NotificationConfig
	repo       Outbox
	log        *logger.Logger
}

// NewModule creates the notification module and subscribes its event handlers.
func NewModule(pool *pgxpool.Pool, bus events.Bus, sender email.Sender, cat *catalog.Catalog, cfg config.NotificationConfig, log *logger.Logger) *Module {
	repo := outbox.New(pool)
	m := &Module{
		dispatcher: NewDispatcher(repo, sender, log),
		cfg:        cfg,
		repo:       repo,
		log:        log,
	}
	m.dispatcher.cat = cat
	m.subscribe(bus)
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// Dispatcher returns the outbox dispatcher for worker wiring.
func (m *Module) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// RegisterRoutes is a no-op; the module is driven by events and the worker.
func (m *Module) RegisterRoutes(_ *apphttp.RouterContext) {}

func (m *Module) subscribe(bus events.Bus) {
	bus.Subscribe("artwork.created", events.HandlerFunc(m.onArtworkCreated))
	bus.Subscribe("artwork.deferred", events.HandlerFunc(m.onArtworkDeferred))
	bus.Subscribe("artwork.completed", events.HandlerFunc(m.onArtworkCompleted))
	bus.Subscribe("review.created", events.HandlerFunc(m.onReviewCreated))
	bus.Subscribe("review.approved", events.HandlerFunc(m.onReviewApproved))
	bus.Subscribe("order.paid", events.HandlerFunc(m.onOrderPaid))
	bus.Subscribe("order.status.changed", events.HandlerFunc(m.onOrderStatusChanged))
}

func (m *Module) onArtworkCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ArtworkCreated)
	if !ok {
		return nil
	}
	return m.insert(ctx, TemplateMasterpieceCreating, time.Time{}, emailPayload{
		To:           e.CustomerEmail,
		CustomerName: e.CustomerName,
		PetName:      e.PetName,
	})
}

func (m *Module) onArtworkDeferred(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ArtworkDeferred)
	if !ok {
		return nil
	}
	return m.insert(ctx, TemplateUploadReminder, time.Now().Add(firstReminderDelay), emailPayload{
		To:             e.CustomerEmail,
		CustomerName:   e.CustomerName,
		ArtworkID:      e.ArtworkID,
		UploadURL:      m.cfg.GetAppBaseURL() + "/upload/" + e.UploadToken,
		ReminderNumber: 1,
	})
}

func (m *Module) onArtworkCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ArtworkCompleted)
	if !ok {
		return nil
	}
	return m.insert(ctx, TemplateMasterpieceReady, time.Time{}, emailPayload{
		To:           e.CustomerEmail,
		CustomerName: e.CustomerName,
		PetName:      e.PetName,
		ArtworkID:    e.ArtworkID,
		ArtworkURL:   m.cfg.GetAppBaseURL() + "/artwork/" + e.AccessToken,
	})
}

func (m *Module) onReviewCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ReviewCreated)
	if !ok {
		return nil
	}
	return m.insert(ctx, TemplateAdminReview, time.Time{}, emailPayload{
		To:           m.cfg.GetAdminEmail(),
		CustomerName: e.CustomerName,
		PetName:      e.PetName,
		ArtworkID:    e.ArtworkID,
		ReviewType:   e.ReviewType,
		ReviewURL:    m.cfg.GetAppBaseURL() + "/admin/reviews/" + e.ReviewID.String(),
	})
}

// onReviewApproved sends the customer reveal for approved artwork proofs.
// High-res approvals go to the print provider, not the customer.
func (m *Module) onReviewApproved(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ReviewApproved)
	if !ok || e.ReviewType != "artwork_proof" {
		return nil
	}
	return m.insert(ctx, TemplateMasterpieceReady, time.Time{}, emailPayload{
		To:           e.CustomerEmail,
		CustomerName: e.CustomerName,
		PetName:      e.PetName,
		ArtworkID:    e.ArtworkID,
		ArtworkURL:   m.cfg.GetAppBaseURL() + "/artwork/" + e.AccessToken,
	})
}

func (m *Module) onOrderPaid(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OrderPaid)
	if !ok {
		return nil
	}
	return m.insert(ctx, TemplateOrderConfirmation, time.Time{}, emailPayload{
		To:                 e.CustomerEmail,
		CustomerName:       e.CustomerName,
		OrderNumber:        ordersvc.OrderNumber(e.OrderID),
		ProductDescription: productDescription(e.ProductType, e.ProductSize),
		EstimatedDelivery:  m.dispatcher.estimatedDelivery(e.ProductType, e.OccurredAt()),
	})
}

func (m *Module) onOrderStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OrderStatusChanged)
	if !ok || e.Status != "shipped" {
		return nil
	}
	return m.insert(ctx, TemplateOrderShipped, time.Time{}, emailPayload{
		To:           e.CustomerEmail,
		CustomerName: e.CustomerName,
		OrderNumber:  e.OrderNumber,
		TrackingURL:  m.cfg.GetAppBaseURL() + "/orders/" + e.OrderID.String(),
	})
}

func (m *Module) insert(ctx context.Context, template string, runAt time.Time, payload emailPayload) error {
	if payload.To == "" {
		return nil
	}
	id, err := m.repo.Insert(ctx, outbox.InsertParams{
		Kind:     kindEmail,
		Template: template,
		Payload:  payload,
		RunAt:    runAt,
	})
	if err != nil {
		return fmt.Errorf("outbox insert %s: %w", template, err)
	}
	m.log.Debug("notification queued", "template", template, "outbox_id", id)
	return nil
}

func productDescription(productType, size string) string {
	switch productType {
	case "digital":
		return "Digital Download"
	case "art_print":
		return fmt.Sprintf("Premium Art Print (%s)", size)
	case "framed_canvas":
		return fmt.Sprintf("Framed Canvas (%s)", size)
	default:
		return productType
	}
}

var _ apphttp.Module = (*Module)(nil)
