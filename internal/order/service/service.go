package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawtrait_backend/internal/catalog"
	"pawtrait_backend/internal/events"
	"pawtrait_backend/internal/order/domain"
	"pawtrait_backend/internal/order/repository"
	"pawtrait_backend/internal/order/transport"
	"pawtrait_backend/internal/payment"
	"pawtrait_backend/platform/apperr"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// reconcileConcurrency bounds how many sessions a batch repairs in parallel.
const reconcileConcurrency = 4

// placeholderSessionPrefix marks synthetic sessions backing placeholder
// orders, so the one-order-per-session invariant holds for them too.
const placeholderSessionPrefix = "placeholder_"

// Resolution outcomes for one session.
const (
	ResolutionExists     = "exists"
	ResolutionReconciled = "reconciled"
	ResolutionNotPaid    = "not_paid"
	ResolutionNoMetadata = "no_metadata"
	ResolutionNotFound   = "not_found"
	ResolutionError      = "error"
)

// ResolutionResult is one session's repair outcome.
type ResolutionResult struct {
	SessionID string
	Status    string
	OrderID   uuid.UUID
	Err       error
}

// Store is the persistence interface the order service needs.
// Implemented by *repository.Repository.
type Store interface {
	Create(ctx context.Context, order *repository.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*repository.Order, error)
	GetLatestForArtwork(ctx context.Context, artworkID uuid.UUID) (*repository.Order, error)
	MarkPaid(ctx context.Context, sessionID, paymentIntentID string, shipping *repository.ShippingAddress) (*repository.Order, error)
	UpdateFulfillment(ctx context.Context, orderID uuid.UUID, fulfillmentOrderID, fulfillmentStatus string) (*repository.Order, error)
	UpdateStatusByFulfillmentOrder(ctx context.Context, fulfillmentOrderID, fulfillmentStatus string, orderStatus domain.Status) (*repository.Order, error)
	ListFailedFulfillment(ctx context.Context) ([]repository.Order, error)
	AddStatusHistory(ctx context.Context, orderID uuid.UUID, status, notes string) error
	GetStatusHistory(ctx context.Context, orderID uuid.UUID) ([]repository.StatusHistoryEntry, error)
}

// FulfillmentSubmitter hands a paid physical order to the print provider.
// Implemented by an adapter wrapping the fulfillment service.
type FulfillmentSubmitter interface {
	SubmitOrder(ctx context.Context, order *repository.Order) error
}

// ArtworkSummaryReader enriches the order-confirmation view with the linked
// artwork's preview and access token.
type ArtworkSummaryReader interface {
	GetArtworkSummary(ctx context.Context, id uuid.UUID) (*transport.ArtworkSummary, error)
}

// Service provides order lookup and the reconciliation engine.
type Service struct {
	store       Store
	payments    payment.Client
	cat         *catalog.Catalog
	bus         events.Bus
	cfg         config.ReconcileConfig
	log         *logger.Logger
	fulfillment FulfillmentSubmitter // optional until wired
	artworks    ArtworkSummaryReader // optional
}

// New creates a new order service.
func New(store Store, payments payment.Client, cat *catalog.Catalog, bus events.Bus, cfg config.ReconcileConfig, log *logger.Logger) *Service {
	return &Service{store: store, payments: payments, cat: cat, bus: bus, cfg: cfg, log: log}
}

// SetFulfillmentSubmitter injects the fulfillment-submission adapter.
func (s *Service) SetFulfillmentSubmitter(submitter FulfillmentSubmitter) { s.fulfillment = submitter }

// SetArtworkSummaryReader injects the artwork read adapter.
func (s *Service) SetArtworkSummaryReader(reader ArtworkSummaryReader) { s.artworks = reader }

// ── Customer-facing lookup ────────────────────────────────────────────────────

// GetBySession returns the order summary for a payment session. A miss
// triggers an inline reconciliation attempt before reporting not-found, so a
// customer landing on the confirmation page ahead of the webhook still gets
// their order.
func (s *Service) GetBySession(ctx context.Context, sessionID string) (*transport.OrderSummaryResponse, error) {
	order, err := s.store.GetBySessionID(ctx, sessionID)
	if apperr.Is(err, apperr.KindNotFound) {
		s.ResolveSession(ctx, sessionID)
		order, err = s.store.GetBySessionID(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return s.toSummary(ctx, order), nil
}

// GetStatusHistory returns an order's status trail for the admin view.
func (s *Service) GetStatusHistory(ctx context.Context, orderID uuid.UUID) ([]repository.StatusHistoryEntry, error) {
	if _, err := s.store.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.GetStatusHistory(ctx, orderID)
}

// ── Reconciliation engine ─────────────────────────────────────────────────────

// ResolveSession restores the order for one payment session. It never
// fabricates: when the provider has no record, or the session is unpaid, no
// order is created. Safe to call redundantly: the existence check runs
// fresh, and the session unique index closes the remaining race between
// concurrent callers.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) ResolutionResult {
	if existing, err := s.store.GetBySessionID(ctx, sessionID); err == nil {
		return ResolutionResult{SessionID: sessionID, Status: ResolutionExists, OrderID: existing.ID}
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return ResolutionResult{SessionID: sessionID, Status: ResolutionError, Err: err}
	}

	session, err := s.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return ResolutionResult{SessionID: sessionID, Status: ResolutionNotFound}
		}
		return ResolutionResult{SessionID: sessionID, Status: ResolutionError, Err: err}
	}
	if !session.Paid() {
		return ResolutionResult{SessionID: sessionID, Status: ResolutionNotPaid}
	}

	meta, ok := payment.ParseOrderMetadata(session)
	if !ok {
		s.log.Warn("session has no usable order metadata", "session_id", sessionID)
		return ResolutionResult{SessionID: sessionID, Status: ResolutionNoMetadata}
	}

	order, created, err := s.createFromSession(ctx, session, meta)
	if err != nil {
		return ResolutionResult{SessionID: sessionID, Status: ResolutionError, Err: err}
	}
	if !created && order.OrderStatus != domain.StatusPending {
		// A concurrent caller already created and completed this order.
		return ResolutionResult{SessionID: sessionID, Status: ResolutionExists, OrderID: order.ID}
	}

	s.completePayment(ctx, order, session, true)

	s.log.Info("order reconciled from payment session", "session_id", sessionID, "order_id", order.ID)
	return ResolutionResult{SessionID: sessionID, Status: ResolutionReconciled, OrderID: order.ID}
}

// ReconcileSessions repairs a batch of sessions with bounded concurrency.
// Per-session failures become per-session results; the batch never aborts.
func (s *Service) ReconcileSessions(ctx context.Context, sessionIDs []string) []ResolutionResult {
	results := make([]ResolutionResult, len(sessionIDs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(reconcileConcurrency)
	for i, sessionID := range sessionIDs {
		i, sessionID := i, sessionID
		group.Go(func() error {
			results[i] = s.ResolveSession(groupCtx, sessionID)
			return nil
		})
	}
	group.Wait()

	return results
}

// ReconcileWindow sweeps the provider's recent sessions and repairs any paid
// session without an order. A non-positive window falls back to the
// configured default.
func (s *Service) ReconcileWindow(ctx context.Context, window time.Duration) ([]ResolutionResult, error) {
	if window <= 0 {
		window = s.cfg.GetReconcileWindow()
	}

	sessions, err := s.payments.ListRecentSessions(ctx, time.Now().Add(-window))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "listing recent payment sessions failed", err)
	}

	var paid []string
	for i := range sessions {
		if sessions[i].Paid() {
			paid = append(paid, sessions[i].ID)
		}
	}
	s.log.Info("reconcile sweep starting", "window", window.String(), "sessions", len(sessions), "paid", len(paid))

	return s.ReconcileSessions(ctx, paid), nil
}

// ── Webhook path ──────────────────────────────────────────────────────────────

// HandleCheckoutCompleted processes a paid session delivered by webhook.
// Idempotent: redelivery of an already-processed session is a no-op.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, session *payment.CheckoutSession) error {
	if !session.Paid() {
		s.log.Info("checkout completed but session not paid, ignoring", "session_id", session.ID)
		return nil
	}

	order, err := s.store.GetBySessionID(ctx, session.ID)
	switch {
	case err == nil:
		if order.OrderStatus != domain.StatusPending && order.OrderStatus != domain.StatusPendingReview {
			// Redelivery after processing; acknowledge without side effects.
			return nil
		}
	case apperr.Is(err, apperr.KindNotFound):
		meta, ok := payment.ParseOrderMetadata(session)
		if !ok {
			return apperr.Validation("checkout session carries no order metadata")
		}
		order, _, err = s.createFromSession(ctx, session, meta)
		if err != nil {
			return err
		}
	default:
		return err
	}

	s.completePayment(ctx, order, session, false)
	return nil
}

// ── Placeholder synthesis ─────────────────────────────────────────────────────

// EnsureOrderForArtwork synthesizes a best-effort placeholder order when
// admin approval finds no order for the artwork. The placeholder uses the
// catalog's default product at its catalog price and a clearly distinct
// pending_review status; reconciliation upgrades it if a real payment
// session appears later.
func (s *Service) EnsureOrderForArtwork(ctx context.Context, artworkID uuid.UUID, customerName, customerEmail string) error {
	if _, err := s.store.GetLatestForArtwork(ctx, artworkID); err == nil {
		return nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return err
	}

	productType, size := s.cat.Placeholder()
	price, err := s.cat.Price(productType, size, catalog.DefaultVariant)
	if err != nil {
		return err
	}

	now := time.Now()
	order := &repository.Order{
		ID:            uuid.New(),
		ArtworkID:     artworkID,
		SessionID:     placeholderSessionPrefix + artworkID.String(),
		ProductType:   string(productType),
		ProductSize:   size,
		PriceCents:    price,
		CustomerEmail: customerEmail,
		CustomerName:  customerName,
		OrderStatus:   domain.StatusPendingReview,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, order); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			// A concurrent approval already synthesized it.
			return nil
		}
		return err
	}

	if err := s.store.AddStatusHistory(ctx, order.ID, string(domain.StatusPendingReview), "placeholder order synthesized at proof approval"); err != nil {
		s.log.Error("failed to record placeholder status history", "order_id", order.ID, "error", err)
	}
	s.log.Info("placeholder order synthesized", "order_id", order.ID, "artwork_id", artworkID)
	return nil
}

// ── Fulfillment linkage ───────────────────────────────────────────────────────

// RetryFulfillment resubmits a paid physical order that never reached the
// print provider.
func (s *Service) RetryFulfillment(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.ProductType == string(catalog.ProductDigital) {
		return apperr.Validation("digital orders have no fulfillment to retry")
	}
	if order.FulfillmentOrderID != nil {
		return apperr.Conflict("fulfillment order already submitted")
	}
	if order.OrderStatus != domain.StatusPaid {
		return apperr.Conflict(fmt.Sprintf("order is %s, only paid orders can be submitted", order.OrderStatus))
	}
	if s.fulfillment == nil {
		return apperr.Unavailable("fulfillment is not available")
	}

	if err := s.fulfillment.SubmitOrder(ctx, order); err != nil {
		s.recordFulfillmentFailure(ctx, order.ID, err)
		return apperr.Wrap(apperr.KindUnavailable, "fulfillment submission failed", err)
	}
	return nil
}

// ListFailedFulfillment returns the retry queue for the admin dashboard.
func (s *Service) ListFailedFulfillment(ctx context.Context) ([]repository.Order, error) {
	return s.store.ListFailedFulfillment(ctx)
}

// LatestForArtwork returns the most recent order linked to an artwork. The
// highres approval path uses it to find the order awaiting submission.
func (s *Service) LatestForArtwork(ctx context.Context, artworkID uuid.UUID) (*repository.Order, error) {
	return s.store.GetLatestForArtwork(ctx, artworkID)
}

// RecordFulfillmentFailure appends a failed entry to the order's status
// trail so the admin retry queue surfaces it.
func (s *Service) RecordFulfillmentFailure(ctx context.Context, orderID uuid.UUID, reason string) {
	if err := s.store.AddStatusHistory(ctx, orderID, "failed", reason); err != nil {
		s.log.Error("failed to record fulfillment failure history", "order_id", orderID, "error", err)
	}
}

// ApplyFulfillmentAccepted records the provider's acceptance of an order.
func (s *Service) ApplyFulfillmentAccepted(ctx context.Context, orderID uuid.UUID, fulfillmentOrderID, fulfillmentStatus string) error {
	order, err := s.store.UpdateFulfillment(ctx, orderID, fulfillmentOrderID, fulfillmentStatus)
	if err != nil {
		return err
	}
	if err := s.store.AddStatusHistory(ctx, order.ID, string(domain.StatusProcessing), "fulfillment order created: "+fulfillmentOrderID); err != nil {
		s.log.Error("failed to record fulfillment status history", "order_id", order.ID, "error", err)
	}

	s.bus.Publish(ctx, events.OrderFulfillmentSubmitted{
		BaseEvent:          events.NewBaseEvent(),
		OrderID:            order.ID,
		FulfillmentOrderID: fulfillmentOrderID,
		Status:             fulfillmentStatus,
	})
	return nil
}

// ApplyFulfillmentStatus maps a provider status change onto the order.
func (s *Service) ApplyFulfillmentStatus(ctx context.Context, fulfillmentOrderID, providerStatus string) error {
	orderStatus := domain.MapFulfillmentStatus(providerStatus)
	order, err := s.store.UpdateStatusByFulfillmentOrder(ctx, fulfillmentOrderID, providerStatus, orderStatus)
	if err != nil {
		return err
	}
	if err := s.store.AddStatusHistory(ctx, order.ID, providerStatus, "fulfillment status update"); err != nil {
		s.log.Error("failed to record fulfillment status history", "order_id", order.ID, "error", err)
	}
	s.bus.Publish(ctx, events.OrderStatusChanged{
		BaseEvent:     events.NewBaseEvent(),
		OrderID:       order.ID,
		OrderNumber:   OrderNumber(order.ID),
		Status:        string(orderStatus),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
	})
	return nil
}

// ── Internals ─────────────────────────────────────────────────────────────────

// createFromSession persists a new order from session metadata. A concurrent
// creation for the same session resolves to the winner's row, reported by
// the created flag.
func (s *Service) createFromSession(ctx context.Context, session *payment.CheckoutSession, meta payment.OrderMetadata) (*repository.Order, bool, error) {
	artworkID := uuid.Nil
	if meta.ArtworkID != "" {
		if parsed, err := uuid.Parse(meta.ArtworkID); err == nil {
			artworkID = parsed
		} else {
			s.log.Warn("session metadata has unparseable artwork id", "session_id", session.ID, "artwork_id", meta.ArtworkID)
		}
	}

	customerName := session.CustomerDetails.Name
	if customerName == "" {
		customerName = meta.CustomerName
	}

	now := time.Now()
	order := &repository.Order{
		ID:            uuid.New(),
		ArtworkID:     artworkID,
		SessionID:     session.ID,
		ProductType:   meta.ProductType,
		ProductSize:   meta.Size,
		PriceCents:    session.AmountTotal,
		CustomerEmail: session.CustomerDetails.Email,
		CustomerName:  customerName,
		OrderStatus:   domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, order); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			existing, getErr := s.store.GetBySessionID(ctx, session.ID)
			return existing, false, getErr
		}
		return nil, false, err
	}
	return order, true, nil
}

// completePayment performs the mark-paid update and its follow-on effects.
// Shipping details are fetched tolerantly: some session classes refuse the
// expansion, and the repair proceeds without them.
func (s *Service) completePayment(ctx context.Context, order *repository.Order, session *payment.CheckoutSession, reconciled bool) {
	var shipping *repository.ShippingAddress
	if details, err := s.payments.GetSessionShipping(ctx, session.ID); err == nil {
		shipping = &repository.ShippingAddress{
			Name:       details.Name,
			Phone:      details.Phone,
			Line1:      details.Address.Line1,
			Line2:      details.Address.Line2,
			City:       details.Address.City,
			State:      details.Address.State,
			PostalCode: details.Address.PostalCode,
			Country:    details.Address.Country,
		}
	} else {
		s.log.Warn("shipping details unavailable, proceeding without them", "session_id", session.ID, "error", err)
	}

	updated, err := s.store.MarkPaid(ctx, session.ID, session.PaymentIntentID, shipping)
	if err != nil {
		s.log.Error("failed to mark order paid", "session_id", session.ID, "error", err)
		return
	}
	if err := s.store.AddStatusHistory(ctx, updated.ID, string(domain.StatusPaid), paymentHistoryNote(reconciled)); err != nil {
		s.log.Error("failed to record paid status history", "order_id", updated.ID, "error", err)
	}

	s.bus.Publish(ctx, events.OrderPaid{
		BaseEvent:     events.NewBaseEvent(),
		OrderID:       updated.ID,
		ArtworkID:     updated.ArtworkID,
		SessionID:     updated.SessionID,
		ProductType:   updated.ProductType,
		ProductSize:   updated.ProductSize,
		PriceCents:    updated.PriceCents,
		CustomerName:  updated.CustomerName,
		CustomerEmail: updated.CustomerEmail,
		Reconciled:    reconciled,
	})

	if updated.ProductType != string(catalog.ProductDigital) && s.fulfillment != nil {
		if err := s.fulfillment.SubmitOrder(ctx, updated); err != nil {
			s.recordFulfillmentFailure(ctx, updated.ID, err)
		}
	}
}

func (s *Service) recordFulfillmentFailure(ctx context.Context, orderID uuid.UUID, cause error) {
	s.log.Error("fulfillment submission failed", "order_id", orderID, "error", cause)
	if err := s.store.AddStatusHistory(ctx, orderID, "failed", "fulfillment submission failed: "+cause.Error()); err != nil {
		s.log.Error("failed to record fulfillment failure history", "order_id", orderID, "error", err)
	}
}

func paymentHistoryNote(reconciled bool) string {
	if reconciled {
		return "payment confirmed during reconciliation"
	}
	return "payment completed via provider webhook"
}

func (s *Service) toSummary(ctx context.Context, order *repository.Order) *transport.OrderSummaryResponse {
	summary := &transport.OrderSummaryResponse{
		OrderNumber:       OrderNumber(order.ID),
		OrderID:           order.ID,
		CustomerEmail:     order.CustomerEmail,
		CustomerName:      order.CustomerName,
		ProductType:       displayProductType(order.ProductType),
		ProductSize:       order.ProductSize,
		PriceCents:        order.PriceCents,
		OrderStatus:       string(order.OrderStatus),
		EstimatedDelivery: s.estimatedDelivery(order.ProductType),
		CreatedAt:         order.CreatedAt,
		ShippingAddress:   order.ShippingAddress,
	}

	if order.FulfillmentOrderID != nil {
		view := &transport.FulfillmentView{OrderID: *order.FulfillmentOrderID}
		if order.FulfillmentStatus != nil {
			view.Status = *order.FulfillmentStatus
		}
		summary.Fulfillment = view
	}

	if s.artworks != nil && order.ArtworkID != uuid.Nil {
		if artwork, err := s.artworks.GetArtworkSummary(ctx, order.ArtworkID); err == nil {
			summary.Artwork = artwork
		} else {
			s.log.Warn("failed to load artwork for order summary", "order_id", order.ID, "error", err)
		}
	}
	return summary
}

// OrderNumber derives the short customer-visible order code from the id.
func OrderNumber(id uuid.UUID) string {
	compact := strings.ReplaceAll(id.String(), "-", "")
	return "PT-" + strings.ToUpper(compact[len(compact)-5:])
}

func displayProductType(productType string) string {
	switch catalog.ProductType(productType) {
	case catalog.ProductDigital:
		return "Digital Download"
	case catalog.ProductArtPrint:
		return "Premium Art Print"
	case catalog.ProductFramedCanvas:
		return "Framed Canvas"
	default:
		return productType
	}
}

func (s *Service) estimatedDelivery(productType string) string {
	pt := catalog.ProductType(productType)
	if pt == catalog.ProductDigital {
		return "Available immediately"
	}
	return s.cat.EstimatedDelivery(pt, time.Now()).Format("Monday, January 2, 2006")
}
