package transport

import (
	"time"

	"pawtrait_backend/internal/artwork/domain"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// SourceImagesRequest carries the two uploaded photo references.
type SourceImagesRequest struct {
	PersonPhoto    string `json:"personPhoto" validate:"required,url"`
	PetPhoto       string `json:"petPhoto" validate:"required,url"`
	PersonPhotoKey string `json:"personPhotoKey"`
	PetPhotoKey    string `json:"petPhotoKey"`
}

// CreateArtworkRequest is the request body for creating a new artwork.
// Source images are optional: the email-first flow provides them later via
// the upload token.
type CreateArtworkRequest struct {
	CustomerName  string               `json:"customerName" validate:"omitempty,max=200"`
	CustomerEmail string               `json:"customerEmail" validate:"required,email"`
	PetName       string               `json:"petName" validate:"omitempty,max=100"`
	UserType      string               `json:"userType" validate:"omitempty,oneof=gifter self_purchaser"`
	SourceImages  *SourceImagesRequest `json:"sourceImages" validate:"omitempty"`
}

// ResumeUploadRequest supplies the photos for a deferred (email-first) artwork.
type ResumeUploadRequest struct {
	CustomerName string              `json:"customerName" validate:"omitempty,max=200"`
	PetName      string              `json:"petName" validate:"omitempty,max=100"`
	SourceImages SourceImagesRequest `json:"sourceImages" validate:"required"`
}

// AdvanceStepRequest is the request body for completing a generation step.
type AdvanceStepRequest struct {
	Step     string `json:"step" validate:"required,oneof=pending monalisa_generation pet_integration completed"`
	ImageURL string `json:"imageUrl" validate:"required,url"`
	// GenerationRef is the external job reference kept for traceability.
	GenerationRef string `json:"generationRef" validate:"omitempty,max=2000"`
}

// MarkFailedRequest records a terminal generation failure.
type MarkFailedRequest struct {
	Step   string `json:"step" validate:"required"`
	Reason string `json:"reason" validate:"required,max=2000"`
}

// PresignUploadRequest asks for a presigned PUT URL for one source photo.
type PresignUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=500"`
	ContentType string `json:"contentType" validate:"required"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// CreateArtworkResponse returns the identifiers the customer needs to get
// back to their artwork.
type CreateArtworkResponse struct {
	ID          uuid.UUID `json:"id"`
	AccessToken string    `json:"accessToken"`
	UploadToken string    `json:"uploadToken,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ArtworkResponse is the customer-facing artwork snapshot.
type ArtworkResponse struct {
	ID                    uuid.UUID               `json:"id"`
	CustomerName          string                  `json:"customerName"`
	CustomerEmail         string                  `json:"customerEmail"`
	PetName               string                  `json:"petName,omitempty"`
	GenerationStep        domain.GenerationStep   `json:"generationStep"`
	SourceImages          domain.SourceImages     `json:"sourceImages"`
	GeneratedImages       domain.GeneratedImages  `json:"generatedImages"`
	DeliveryImages        domain.DeliveryImages   `json:"deliveryImages"`
	ProcessingStatus      domain.ProcessingStatus `json:"processingStatus"`
	PriceVariant          string                  `json:"priceVariant"`
	UserType              domain.UserType         `json:"userType,omitempty"`
	GenerationStartedAt   *time.Time              `json:"generationStartedAt,omitempty"`
	GenerationCompletedAt *time.Time              `json:"generationCompletedAt,omitempty"`
	CreatedAt             time.Time               `json:"createdAt"`
}
