package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawtrait_backend/internal/artwork/domain"
	"pawtrait_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Artwork is the database model for one customer's generation request.
type Artwork struct {
	ID                    uuid.UUID               `db:"id"`
	CustomerName          string                  `db:"customer_name"`
	CustomerEmail         string                  `db:"customer_email"`
	PetName               string                  `db:"pet_name"`
	AccessToken           string                  `db:"access_token"`
	TokenExpiresAt        time.Time               `db:"token_expires_at"`
	UploadToken           *string                 `db:"upload_token"`
	UploadTokenExpiresAt  *time.Time              `db:"upload_token_expires_at"`
	GenerationStep        domain.GenerationStep   `db:"generation_step"`
	SourceImages          domain.SourceImages     `db:"source_images"`
	GeneratedImages       domain.GeneratedImages  `db:"generated_images"`
	DeliveryImages        domain.DeliveryImages   `db:"delivery_images"`
	ProcessingStatus      domain.ProcessingStatus `db:"processing_status"`
	PriceVariant          string                  `db:"price_variant"`
	UserType              domain.UserType         `db:"user_type"`
	GenerationStartedAt   *time.Time              `db:"generation_started_at"`
	GenerationCompletedAt *time.Time              `db:"generation_completed_at"`
	CreatedAt             time.Time               `db:"created_at"`
	UpdatedAt             time.Time               `db:"updated_at"`
}

// ── Repository ────────────────────────────────────────────────────────────────

const artworkNotFoundMsg = "artwork not found"

const artworkColumns = `
	id, customer_name, customer_email, pet_name,
	access_token, token_expires_at, upload_token, upload_token_expires_at,
	generation_step, source_images, generated_images, delivery_images, processing_status,
	price_variant, user_type, generation_started_at, generation_completed_at,
	created_at, updated_at`

// Repository provides database operations for artworks.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new artwork repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new artwork row.
func (r *Repository) Create(ctx context.Context, artwork *Artwork) error {
	query := `
		INSERT INTO artworks (
			id, customer_name, customer_email, pet_name,
			access_token, token_expires_at, upload_token, upload_token_expires_at,
			generation_step, source_images, generated_images, delivery_images, processing_status,
			price_variant, user_type, generation_started_at, generation_completed_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.pool.Exec(ctx, query,
		artwork.ID, artwork.CustomerName, artwork.CustomerEmail, artwork.PetName,
		artwork.AccessToken, artwork.TokenExpiresAt, artwork.UploadToken, artwork.UploadTokenExpiresAt,
		artwork.GenerationStep, artwork.SourceImages, artwork.GeneratedImages, artwork.DeliveryImages, artwork.ProcessingStatus,
		artwork.PriceVariant, artwork.UserType, artwork.GenerationStartedAt, artwork.GenerationCompletedAt,
		artwork.CreatedAt, artwork.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert artwork: %w", err)
	}
	return nil
}

// GetByID fetches an artwork by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Artwork, error) {
	query := `SELECT ` + artworkColumns + ` FROM artworks WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// GetByAccessToken fetches an artwork by its customer access token.
// Expiry is checked by the service layer so it can distinguish "expired"
// from "never existed".
func (r *Repository) GetByAccessToken(ctx context.Context, accessToken string) (*Artwork, error) {
	query := `SELECT ` + artworkColumns + ` FROM artworks WHERE access_token = $1`
	return r.queryOne(ctx, query, accessToken)
}

// GetByUploadToken fetches an artwork by its deferred-upload token.
func (r *Repository) GetByUploadToken(ctx context.Context, uploadToken string) (*Artwork, error) {
	query := `SELECT ` + artworkColumns + ` FROM artworks WHERE upload_token = $1`
	return r.queryOne(ctx, query, uploadToken)
}

// ExtendAccessToken pushes the access-token expiry forward.
func (r *Repository) ExtendAccessToken(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE artworks SET token_expires_at = $2, updated_at = now() WHERE id = $1`,
		id, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to extend access token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(artworkNotFoundMsg)
	}
	return nil
}

// UpdateCustomer fills in customer identity captured after creation.
func (r *Repository) UpdateCustomer(ctx context.Context, id uuid.UUID, name, email, petName string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE artworks SET
			customer_name = CASE WHEN $2 <> '' THEN $2 ELSE customer_name END,
			customer_email = CASE WHEN $3 <> '' THEN $3 ELSE customer_email END,
			pet_name = CASE WHEN $4 <> '' THEN $4 ELSE pet_name END,
			updated_at = now()
		WHERE id = $1`,
		id, name, email, petName,
	)
	if err != nil {
		return fmt.Errorf("failed to update artwork customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(artworkNotFoundMsg)
	}
	return nil
}

// ClearUploadToken invalidates the deferred-upload token once the flow resumes.
func (r *Repository) ClearUploadToken(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE artworks SET upload_token = NULL, upload_token_expires_at = NULL, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to clear upload token: %w", err)
	}
	return nil
}

// UpdateGeneration applies a read-modify-write mutation to the generation
// state under a row lock. The JSON sub-objects are written back whole, so the
// apply callback must merge onto the loaded values rather than replace them.
func (r *Repository) UpdateGeneration(ctx context.Context, id uuid.UUID, apply func(*Artwork) error) (*Artwork, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + artworkColumns + ` FROM artworks WHERE id = $1 FOR UPDATE`
	artwork, err := scanArtwork(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(artworkNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to load artwork for update: %w", err)
	}

	if err := apply(artwork); err != nil {
		return nil, err
	}
	artwork.UpdatedAt = time.Now()

	_, err = tx.Exec(ctx, `
		UPDATE artworks SET
			generation_step = $2,
			source_images = $3,
			generated_images = $4,
			delivery_images = $5,
			processing_status = $6,
			generation_started_at = $7,
			generation_completed_at = $8,
			updated_at = $9
		WHERE id = $1`,
		artwork.ID, artwork.GenerationStep,
		artwork.SourceImages, artwork.GeneratedImages, artwork.DeliveryImages, artwork.ProcessingStatus,
		artwork.GenerationStartedAt, artwork.GenerationCompletedAt, artwork.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update artwork generation state: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit artwork update: %w", err)
	}
	return artwork, nil
}

// ListAwaitingUpload returns deferred artworks that still have no source
// photos, created before the cutoff. Used for upload-reminder emails.
func (r *Repository) ListAwaitingUpload(ctx context.Context, createdBefore time.Time, limit int) ([]Artwork, error) {
	query := `
		SELECT ` + artworkColumns + `
		FROM artworks
		WHERE upload_token IS NOT NULL
		  AND (upload_token_expires_at IS NULL OR upload_token_expires_at > now())
		  AND source_images = '{}'::jsonb
		  AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deferred artworks: %w", err)
	}
	defer rows.Close()

	var artworks []Artwork
	for rows.Next() {
		artwork, err := scanArtwork(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deferred artwork: %w", err)
		}
		artworks = append(artworks, *artwork)
	}
	return artworks, rows.Err()
}

func (r *Repository) queryOne(ctx context.Context, query string, arg any) (*Artwork, error) {
	artwork, err := scanArtwork(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(artworkNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	return artwork, nil
}

func scanArtwork(row pgx.Row) (*Artwork, error) {
	var a Artwork
	err := row.Scan(
		&a.ID, &a.CustomerName, &a.CustomerEmail, &a.PetName,
		&a.AccessToken, &a.TokenExpiresAt, &a.UploadToken, &a.UploadTokenExpiresAt,
		&a.GenerationStep, &a.SourceImages, &a.GeneratedImages, &a.DeliveryImages, &a.ProcessingStatus,
		&a.PriceVariant, &a.UserType, &a.GenerationStartedAt, &a.GenerationCompletedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
