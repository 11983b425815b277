package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawtrait_backend/internal/order/domain"
	"pawtrait_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// ShippingAddress is the provider shipping payload persisted as JSONB.
type ShippingAddress struct {
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Order is the database model for one payment session's order.
type Order struct {
	ID                 uuid.UUID        `db:"id"`
	ArtworkID          uuid.UUID        `db:"artwork_id"`
	SessionID          string           `db:"session_id"`
	PaymentIntentID    *string          `db:"payment_intent_id"`
	ProductType        string           `db:"product_type"`
	ProductSize        string           `db:"product_size"`
	PriceCents         int64            `db:"price_cents"`
	CustomerEmail      string           `db:"customer_email"`
	CustomerName       string           `db:"customer_name"`
	OrderStatus        domain.Status    `db:"order_status"`
	FulfillmentOrderID *string          `db:"fulfillment_order_id"`
	FulfillmentStatus  *string          `db:"fulfillment_status"`
	ShippingAddress    *ShippingAddress `db:"shipping_address"`
	CreatedAt          time.Time        `db:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at"`
}

// StatusHistoryEntry is one append-only row of an order's status trail.
type StatusHistoryEntry struct {
	ID        uuid.UUID `db:"id"`
	OrderID   uuid.UUID `db:"order_id"`
	Status    string    `db:"status"`
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
}

// ── Repository ────────────────────────────────────────────────────────────────

const orderNotFoundMsg = "order not found"

const orderColumns = `
	id, artwork_id, session_id, payment_intent_id,
	product_type, product_size, price_cents,
	customer_email, customer_name, order_status,
	fulfillment_order_id, fulfillment_status, shipping_address,
	created_at, updated_at`

// Repository provides database operations for orders.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new order repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new order row. The unique index on session_id is the
// database-level duplicate guard behind reconciliation's fresh-read check;
// a violation surfaces as a conflict so callers can re-query instead of
// failing.
func (r *Repository) Create(ctx context.Context, order *Order) error {
	query := `
		INSERT INTO orders (
			id, artwork_id, session_id, payment_intent_id,
			product_type, product_size, price_cents,
			customer_email, customer_name, order_status,
			fulfillment_order_id, fulfillment_status, shipping_address,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.pool.Exec(ctx, query,
		order.ID, nullableUUID(order.ArtworkID), order.SessionID, order.PaymentIntentID,
		order.ProductType, order.ProductSize, order.PriceCents,
		order.CustomerEmail, order.CustomerName, order.OrderStatus,
		order.FulfillmentOrderID, order.FulfillmentStatus, order.ShippingAddress,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("order already exists for this session")
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// GetByID returns one order.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	return r.queryOne(ctx, query, id)
}

// GetBySessionID returns the order linked to a payment session.
func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE session_id = $1`, orderColumns)
	return r.queryOne(ctx, query, sessionID)
}

// GetLatestForArtwork returns the most recent order for an artwork.
func (r *Repository) GetLatestForArtwork(ctx context.Context, artworkID uuid.UUID) (*Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE artwork_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, orderColumns)
	return r.queryOne(ctx, query, artworkID)
}

// MarkPaid performs the post-payment update a webhook would do: status paid,
// payment intent attached, shipping recorded when available. The shipping
// parameter may be nil for session classes whose details cannot be fetched.
func (r *Repository) MarkPaid(ctx context.Context, sessionID, paymentIntentID string, shipping *ShippingAddress) (*Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders
		SET order_status = $2,
		    payment_intent_id = $3,
		    shipping_address = COALESCE($4, shipping_address),
		    updated_at = NOW()
		WHERE session_id = $1
		RETURNING %s`, orderColumns)

	return r.queryOne(ctx, query, sessionID, domain.StatusPaid, paymentIntentID, shipping)
}

// UpdateFulfillment records the accepted fulfillment order on an order.
func (r *Repository) UpdateFulfillment(ctx context.Context, orderID uuid.UUID, fulfillmentOrderID, fulfillmentStatus string) (*Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders
		SET fulfillment_order_id = $2,
		    fulfillment_status = $3,
		    order_status = $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, orderColumns)

	return r.queryOne(ctx, query, orderID, fulfillmentOrderID, fulfillmentStatus, domain.StatusProcessing)
}

// UpdateStatusByFulfillmentOrder applies a fulfillment-provider status change
// to the order carrying that provider order id.
func (r *Repository) UpdateStatusByFulfillmentOrder(ctx context.Context, fulfillmentOrderID, fulfillmentStatus string, orderStatus domain.Status) (*Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders
		SET fulfillment_status = $2,
		    order_status = $3,
		    updated_at = NOW()
		WHERE fulfillment_order_id = $1
		RETURNING %s`, orderColumns)

	return r.queryOne(ctx, query, fulfillmentOrderID, fulfillmentStatus, orderStatus)
}

// ListFailedFulfillment returns paid physical orders that never reached the
// fulfillment provider, oldest first, for the admin retry flow.
func (r *Repository) ListFailedFulfillment(ctx context.Context) ([]Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE order_status = $1
		  AND fulfillment_order_id IS NULL
		  AND product_type <> 'digital'
		ORDER BY created_at ASC`, orderColumns)

	rows, err := r.pool.Query(ctx, query, domain.StatusPaid)
	if err != nil {
		return nil, fmt.Errorf("list failed fulfillment orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// AddStatusHistory appends one status-trail row. History is append-only.
func (r *Repository) AddStatusHistory(ctx context.Context, orderID uuid.UUID, status, notes string) error {
	query := `
		INSERT INTO order_status_history (id, order_id, status, notes, created_at)
		VALUES ($1, $2, $3, $4, NOW())`

	if _, err := r.pool.Exec(ctx, query, uuid.New(), orderID, status, notes); err != nil {
		return fmt.Errorf("add order status history: %w", err)
	}
	return nil
}

// GetStatusHistory returns an order's status trail, newest first.
func (r *Repository) GetStatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusHistoryEntry, error) {
	query := `
		SELECT id, order_id, status, notes, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order status history: %w", err)
	}
	defer rows.Close()

	var history []StatusHistoryEntry
	for rows.Next() {
		var entry StatusHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Status, &entry.Notes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// ── Internals ─────────────────────────────────────────────────────────────────

func (r *Repository) queryOne(ctx context.Context, query string, args ...interface{}) (*Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(orderNotFoundMsg)
		}
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var order Order
	var artworkID *uuid.UUID
	err := row.Scan(
		&order.ID, &artworkID, &order.SessionID, &order.PaymentIntentID,
		&order.ProductType, &order.ProductSize, &order.PriceCents,
		&order.CustomerEmail, &order.CustomerName, &order.OrderStatus,
		&order.FulfillmentOrderID, &order.FulfillmentStatus, &order.ShippingAddress,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if artworkID != nil {
		order.ArtworkID = *artworkID
	}
	return &order, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
