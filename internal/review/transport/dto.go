package transport

import (
	"time"

	"pawtrait_backend/internal/review/repository"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// DecisionRequest carries the optional notes of an approve/reject action.
// Reviewer identity comes from the authenticated admin session, not the body.
type DecisionRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=4000"`
}

// RegenerateRequest asks for a fresh AI candidate image on a review.
type RegenerateRequest struct {
	PromptTweak    string `json:"promptTweak" validate:"omitempty,max=2000"`
	RegenerateBase bool   `json:"regenerateBase"`
}

// ManualUploadRequest replaces the candidate image with an admin-supplied one.
type ManualUploadRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,url"`
	Notes    string `json:"notes" validate:"omitempty,max=4000"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ReviewResponse is the admin-facing review representation.
type ReviewResponse struct {
	ID                  uuid.UUID                 `json:"id"`
	ArtworkID           uuid.UUID                 `json:"artworkId"`
	ReviewType          string                    `json:"reviewType"`
	Status              string                    `json:"status"`
	ImageURL            string                    `json:"imageUrl"`
	BaseImageURL        string                    `json:"baseImageUrl,omitempty"`
	GenerationRef       string                    `json:"generationRef,omitempty"`
	CustomerName        string                    `json:"customerName"`
	CustomerEmail       string                    `json:"customerEmail"`
	PetName             string                    `json:"petName,omitempty"`
	RegenerationHistory []repository.HistoryEntry `json:"regenerationHistory"`
	ReviewNotes         *string                   `json:"reviewNotes,omitempty"`
	ReviewedBy          *string                   `json:"reviewedBy,omitempty"`
	ReviewedAt          *time.Time                `json:"reviewedAt,omitempty"`
	ManuallyReplaced    bool                      `json:"manuallyReplaced"`
	CreatedAt           time.Time                 `json:"createdAt"`
}

// FromReview maps the database model to the response shape.
func FromReview(r *repository.Review) *ReviewResponse {
	history := r.RegenerationHistory
	if history == nil {
		history = []repository.HistoryEntry{}
	}
	return &ReviewResponse{
		ID:                  r.ID,
		ArtworkID:           r.ArtworkID,
		ReviewType:          r.ReviewType,
		Status:              r.Status,
		ImageURL:            r.ImageURL,
		BaseImageURL:        r.BaseImageURL,
		GenerationRef:       r.GenerationRef,
		CustomerName:        r.CustomerName,
		CustomerEmail:       r.CustomerEmail,
		PetName:             r.PetName,
		RegenerationHistory: history,
		ReviewNotes:         r.ReviewNotes,
		ReviewedBy:          r.ReviewedBy,
		ReviewedAt:          r.ReviewedAt,
		ManuallyReplaced:    r.ManuallyReplaced,
		CreatedAt:           r.CreatedAt,
	}
}
