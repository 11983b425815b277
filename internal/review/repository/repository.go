package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawtrait_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Review types and statuses.
const (
	TypeArtworkProof = "artwork_proof"
	TypeHighresFile  = "highres_file"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// HistoryEntry records one superseded candidate image. Entries are write-once:
// the history array only ever grows.
type HistoryEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	ImageURL         string    `json:"image_url"`
	BaseImageURL     string    `json:"base_image_url,omitempty"`
	PromptTweak      string    `json:"prompt_tweak,omitempty"`
	RegeneratedBase  bool      `json:"regenerated_base,omitempty"`
	ExternalJobRef   string    `json:"external_job_ref,omitempty"`
	ManuallyUploaded bool      `json:"manually_uploaded,omitempty"`
}

// Review is the database model for an admin review checkpoint. Customer
// fields are a denormalized snapshot taken at creation time so the review
// stays self-describing if the artwork changes later.
type Review struct {
	ID                  uuid.UUID      `db:"id"`
	ArtworkID           uuid.UUID      `db:"artwork_id"`
	ReviewType          string         `db:"review_type"`
	Status              string         `db:"status"`
	ImageURL            string         `db:"image_url"`
	BaseImageURL        string         `db:"base_image_url"`
	GenerationRef       string         `db:"generation_ref"`
	CustomerName        string         `db:"customer_name"`
	CustomerEmail       string         `db:"customer_email"`
	PetName             string         `db:"pet_name"`
	RegenerationHistory []HistoryEntry `db:"regeneration_history"`
	ReviewNotes         *string        `db:"review_notes"`
	ReviewedBy          *string        `db:"reviewed_by"`
	ReviewedAt          *time.Time     `db:"reviewed_at"`
	ManuallyReplaced    bool           `db:"manually_replaced"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

// ListParams filters the admin review listing.
type ListParams struct {
	Status     string
	ReviewType string
	Limit      int
}

// ReplaceImageParams carries one image replacement (regeneration or manual
// upload) together with the history entry recorded for the superseded image.
type ReplaceImageParams struct {
	NewImageURL      string
	NewBaseImageURL  string // empty means keep current
	NewGenerationRef string
	Entry            HistoryEntry
	MarkApproved     bool
	ManuallyReplaced bool
	ReviewedBy       string
}

// ── Repository ────────────────────────────────────────────────────────────────

const reviewNotFoundMsg = "review not found"

const reviewColumns = `
	id, artwork_id, review_type, status, image_url, base_image_url, generation_ref,
	customer_name, customer_email, pet_name, regeneration_history,
	review_notes, reviewed_by, reviewed_at, manually_replaced, created_at, updated_at`

// Repository provides database operations for admin reviews.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new review repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new review row.
func (r *Repository) Create(ctx context.Context, review *Review) error {
	query := `
		INSERT INTO admin_reviews (
			id, artwork_id, review_type, status, image_url, base_image_url, generation_ref,
			customer_name, customer_email, pet_name, regeneration_history,
			review_notes, reviewed_by, reviewed_at, manually_replaced, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.pool.Exec(ctx, query,
		review.ID, review.ArtworkID, review.ReviewType, review.Status,
		review.ImageURL, review.BaseImageURL, review.GenerationRef,
		review.CustomerName, review.CustomerEmail, review.PetName, review.RegenerationHistory,
		review.ReviewNotes, review.ReviewedBy, review.ReviewedAt, review.ManuallyReplaced,
		review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// GetByID fetches a review by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM admin_reviews WHERE id = $1`
	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(reviewNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to fetch review: %w", err)
	}
	return review, nil
}

// GetPending returns the pending review for an (artwork, type) pair, or a
// not-found error when none exists.
func (r *Repository) GetPending(ctx context.Context, artworkID uuid.UUID, reviewType string) (*Review, error) {
	query := `SELECT ` + reviewColumns + `
		FROM admin_reviews
		WHERE artwork_id = $1 AND review_type = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1`
	review, err := scanReview(r.pool.QueryRow(ctx, query, artworkID, reviewType, StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(reviewNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to fetch pending review: %w", err)
	}
	return review, nil
}

// List returns reviews matching the filters, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Review, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + reviewColumns + `
		FROM admin_reviews
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR review_type = $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, params.Status, params.ReviewType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	return reviews, rows.Err()
}

// Decide transitions a pending review to approved or rejected. The pending
// guard lives in the WHERE clause so a concurrent double-decision loses
// cleanly with a conflict instead of overwriting.
func (r *Repository) Decide(ctx context.Context, id uuid.UUID, status, reviewedBy, notes string) (*Review, error) {
	query := `
		UPDATE admin_reviews SET
			status = $2,
			reviewed_by = $3,
			review_notes = NULLIF($4, ''),
			reviewed_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = $5
		RETURNING ` + reviewColumns

	review, err := scanReview(r.pool.QueryRow(ctx, query, id, status, reviewedBy, notes, StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish missing from already-decided.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, apperr.Conflict("review is not pending")
		}
		return nil, fmt.Errorf("failed to decide review: %w", err)
	}
	return review, nil
}

// ReplaceImage appends the history entry and swaps in the replacement image
// under a row lock. Never touches status unless MarkApproved is set.
func (r *Repository) ReplaceImage(ctx context.Context, id uuid.UUID, params ReplaceImageParams) (*Review, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + reviewColumns + ` FROM admin_reviews WHERE id = $1 FOR UPDATE`
	review, err := scanReview(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(reviewNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to load review for update: %w", err)
	}

	review.RegenerationHistory = append(review.RegenerationHistory, params.Entry)
	review.ImageURL = params.NewImageURL
	if params.NewBaseImageURL != "" {
		review.BaseImageURL = params.NewBaseImageURL
	}
	if params.NewGenerationRef != "" {
		review.GenerationRef = params.NewGenerationRef
	}
	if params.ManuallyReplaced {
		review.ManuallyReplaced = true
	}
	if params.MarkApproved && review.Status == StatusPending {
		review.Status = StatusApproved
		reviewedBy := params.ReviewedBy
		review.ReviewedBy = &reviewedBy
		now := time.Now()
		review.ReviewedAt = &now
	}
	review.UpdatedAt = time.Now()

	_, err = tx.Exec(ctx, `
		UPDATE admin_reviews SET
			status = $2,
			image_url = $3,
			base_image_url = $4,
			generation_ref = $5,
			regeneration_history = $6,
			reviewed_by = $7,
			reviewed_at = $8,
			manually_replaced = $9,
			updated_at = $10
		WHERE id = $1`,
		review.ID, review.Status, review.ImageURL, review.BaseImageURL, review.GenerationRef,
		review.RegenerationHistory, review.ReviewedBy, review.ReviewedAt, review.ManuallyReplaced,
		review.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to replace review image: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit image replacement: %w", err)
	}
	return review, nil
}

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(
		&rv.ID, &rv.ArtworkID, &rv.ReviewType, &rv.Status,
		&rv.ImageURL, &rv.BaseImageURL, &rv.GenerationRef,
		&rv.CustomerName, &rv.CustomerEmail, &rv.PetName, &rv.RegenerationHistory,
		&rv.ReviewNotes, &rv.ReviewedBy, &rv.ReviewedAt, &rv.ManuallyReplaced,
		&rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}
