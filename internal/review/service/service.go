package service

import (
	"context"
	"time"

	"pawtrait_backend/internal/events"
	"pawtrait_backend/internal/review/repository"
	"pawtrait_backend/internal/review/transport"
	"pawtrait_backend/platform/apperr"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence interface the review service needs.
// Implemented by *repository.Repository.
type Store interface {
	Create(ctx context.Context, review *repository.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Review, error)
	GetPending(ctx context.Context, artworkID uuid.UUID, reviewType string) (*repository.Review, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Review, error)
	Decide(ctx context.Context, id uuid.UUID, status, reviewedBy, notes string) (*repository.Review, error)
	ReplaceImage(ctx context.Context, id uuid.UUID, params repository.ReplaceImageParams) (*repository.Review, error)
}

// ArtworkInfo is the artwork data the review gate needs for regeneration and
// post-approval actions.
type ArtworkInfo struct {
	ID            uuid.UUID
	CustomerName  string
	CustomerEmail string
	PetName       string
	AccessToken   string
	PersonPhoto   string
	PetPhoto      string
	MonaLisaBase  string
}

// ArtworkReader exposes artwork data across the module boundary.
// Implemented by an adapter wrapping the artwork service.
type ArtworkReader interface {
	GetArtworkInfo(ctx context.Context, id uuid.UUID) (*ArtworkInfo, error)
}

// ArtworkImageWriter overlays an admin-approved replacement image onto the
// artwork's generated/delivery images.
type ArtworkImageWriter interface {
	ReplaceApprovedImage(ctx context.Context, artworkID uuid.UUID, imageURL string) error
}

// PlaceholderOrderCreator synthesizes a best-effort placeholder order when
// approval finds no order and no payment session for the artwork.
type PlaceholderOrderCreator interface {
	EnsureOrderForArtwork(ctx context.Context, artworkID uuid.UUID, customerName, customerEmail string) error
}

// FulfillmentSubmitter submits the real fulfillment order once the
// high-resolution file has been approved.
type FulfillmentSubmitter interface {
	SubmitApprovedHighRes(ctx context.Context, artworkID uuid.UUID, imageURL string) error
}

// MockupRequester triggers asynchronous product-mockup generation.
type MockupRequester interface {
	RequestMockups(ctx context.Context, artworkID uuid.UUID, imageURL string) error
}

// RegenerationParams describes one regeneration run.
type RegenerationParams struct {
	PersonPhotoURL string
	PetPhotoURL    string
	CurrentBaseURL string
	PromptTweak    string
	RegenerateBase bool
}

// RegenerationResult is the outcome of a regeneration run.
type RegenerationResult struct {
	ImageURL      string
	BaseImageURL  string
	GenerationRef string
}

// Regenerator runs the AI pipeline to produce a fresh candidate image.
type Regenerator interface {
	Regenerate(ctx context.Context, params RegenerationParams) (*RegenerationResult, error)
}

// OpenParams is the denormalized snapshot a review is created from.
type OpenParams struct {
	ArtworkID     uuid.UUID
	ReviewType    string
	ImageURL      string
	BaseImageURL  string
	GenerationRef string
	CustomerName  string
	CustomerEmail string
	PetName       string
}

// Service provides business logic for the admin review gate.
type Service struct {
	store       Store
	bus         events.Bus
	log         *logger.Logger
	artworks    ArtworkReader           // optional until wired
	artworkImgs ArtworkImageWriter      // optional
	orders      PlaceholderOrderCreator // optional
	fulfillment FulfillmentSubmitter    // optional
	mockups     MockupRequester         // optional
	regenerator Regenerator             // optional
}

// New creates a new review service.
func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// SetArtworkReader injects the artwork read adapter.
func (s *Service) SetArtworkReader(reader ArtworkReader) { s.artworks = reader }

// SetArtworkImageWriter injects the artwork image-replacement adapter.
func (s *Service) SetArtworkImageWriter(writer ArtworkImageWriter) { s.artworkImgs = writer }

// SetPlaceholderOrderCreator injects the order-synthesis adapter.
func (s *Service) SetPlaceholderOrderCreator(creator PlaceholderOrderCreator) { s.orders = creator }

// SetFulfillmentSubmitter injects the fulfillment-submission adapter.
func (s *Service) SetFulfillmentSubmitter(submitter FulfillmentSubmitter) { s.fulfillment = submitter }

// SetMockupRequester injects the mockup-generation trigger.
func (s *Service) SetMockupRequester(requester MockupRequester) { s.mockups = requester }

// SetRegenerator injects the AI regeneration runner.
func (s *Service) SetRegenerator(regenerator Regenerator) { s.regenerator = regenerator }

// Open creates a review checkpoint unless one is already pending for the
// same (artwork, type) pair.
func (s *Service) Open(ctx context.Context, params OpenParams) (*transport.ReviewResponse, error) {
	if params.ReviewType != repository.TypeArtworkProof && params.ReviewType != repository.TypeHighresFile {
		return nil, apperr.Validation("unknown review type")
	}

	if existing, err := s.store.GetPending(ctx, params.ArtworkID, params.ReviewType); err == nil {
		// Already held at this checkpoint; nothing new to create.
		return transport.FromReview(existing), nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	now := time.Now()
	review := &repository.Review{
		ID:            uuid.New(),
		ArtworkID:     params.ArtworkID,
		ReviewType:    params.ReviewType,
		Status:        repository.StatusPending,
		ImageURL:      params.ImageURL,
		BaseImageURL:  params.BaseImageURL,
		GenerationRef: params.GenerationRef,
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		PetName:       params.PetName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, review); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ReviewCreated{
		BaseEvent:     events.NewBaseEvent(),
		ReviewID:      review.ID,
		ArtworkID:     review.ArtworkID,
		ReviewType:    review.ReviewType,
		CustomerName:  review.CustomerName,
		PetName:       review.PetName,
		ImageURL:      review.ImageURL,
		GenerationRef: review.GenerationRef,
	})
	return transport.FromReview(review), nil
}

// List returns reviews for the admin dashboard.
func (s *Service) List(ctx context.Context, status, reviewType string, limit int) ([]*transport.ReviewResponse, error) {
	reviews, err := s.store.List(ctx, repository.ListParams{Status: status, ReviewType: reviewType, Limit: limit})
	if err != nil {
		return nil, err
	}
	responses := make([]*transport.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		responses = append(responses, transport.FromReview(&reviews[i]))
	}
	return responses, nil
}

// Get returns one review.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*transport.ReviewResponse, error) {
	review, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return transport.FromReview(review), nil
}

// Approve transitions a pending review to approved and runs the post-approval
// actions for its type. The actions are isolated from each other and from the
// approval itself: a failing email or order synthesis never rolls back the
// decision.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, reviewedBy, notes string) (*transport.ReviewResponse, error) {
	review, err := s.store.Decide(ctx, id, repository.StatusApproved, reviewedBy, notes)
	if err != nil {
		return nil, err
	}

	switch review.ReviewType {
	case repository.TypeArtworkProof:
		s.runProofApprovalActions(ctx, review)
	case repository.TypeHighresFile:
		s.runHighresApprovalActions(ctx, review)
	}

	return transport.FromReview(review), nil
}

// Reject transitions a pending review to rejected. No downstream actions
// fire; a new generation cycle must create fresh review state.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reviewedBy, notes string) (*transport.ReviewResponse, error) {
	review, err := s.store.Decide(ctx, id, repository.StatusRejected, reviewedBy, notes)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ReviewRejected{
		BaseEvent:  events.NewBaseEvent(),
		ReviewID:   review.ID,
		ArtworkID:  review.ArtworkID,
		ReviewType: review.ReviewType,
		ReviewedBy: reviewedBy,
		Notes:      notes,
	})
	return transport.FromReview(review), nil
}

// Regenerate produces a fresh AI candidate for the review, appending the
// superseded image to the regeneration history. Status never changes and no
// status is required: regenerating a rejected review records candidates in
// its history but the rejection itself stays terminal.
func (s *Service) Regenerate(ctx context.Context, id uuid.UUID, promptTweak string, regenerateBase bool) (*transport.ReviewResponse, error) {
	if s.regenerator == nil {
		return nil, apperr.Unavailable("regeneration is not available")
	}
	if s.artworks == nil {
		return nil, apperr.Internal("artwork reader not wired")
	}

	review, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	artwork, err := s.artworks.GetArtworkInfo(ctx, review.ArtworkID)
	if err != nil {
		return nil, err
	}
	if artwork.PersonPhoto == "" || artwork.PetPhoto == "" {
		return nil, apperr.Validation("source photos are no longer available for regeneration")
	}

	result, err := s.regenerator.Regenerate(ctx, RegenerationParams{
		PersonPhotoURL: artwork.PersonPhoto,
		PetPhotoURL:    artwork.PetPhoto,
		CurrentBaseURL: review.BaseImageURL,
		PromptTweak:    promptTweak,
		RegenerateBase: regenerateBase,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "regeneration failed", err)
	}

	entry := repository.HistoryEntry{
		Timestamp:       time.Now(),
		ImageURL:        review.ImageURL,
		PromptTweak:     promptTweak,
		RegeneratedBase: regenerateBase,
		ExternalJobRef:  review.GenerationRef,
	}
	if regenerateBase {
		entry.BaseImageURL = review.BaseImageURL
	}

	updated, err := s.store.ReplaceImage(ctx, id, repository.ReplaceImageParams{
		NewImageURL:      result.ImageURL,
		NewBaseImageURL:  result.BaseImageURL,
		NewGenerationRef: result.GenerationRef,
		Entry:            entry,
	})
	if err != nil {
		return nil, err
	}
	return transport.FromReview(updated), nil
}

// ManualReplace swaps in an admin-supplied image. Unlike ordinary
// regeneration this always acts as an implicit approval: it replaces the
// image, transitions a pending review to approved, propagates the image to
// the artwork, and runs the artwork-proof post-approval actions.
func (s *Service) ManualReplace(ctx context.Context, id uuid.UUID, imageURL, reviewedBy, notes string) (*transport.ReviewResponse, error) {
	review, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.Status == repository.StatusRejected {
		return nil, apperr.Conflict("rejected reviews cannot be replaced; start a new review cycle")
	}

	entry := repository.HistoryEntry{
		Timestamp:        time.Now(),
		ImageURL:         review.ImageURL,
		ExternalJobRef:   review.GenerationRef,
		ManuallyUploaded: true,
	}

	updated, err := s.store.ReplaceImage(ctx, id, repository.ReplaceImageParams{
		NewImageURL:      imageURL,
		Entry:            entry,
		MarkApproved:     true,
		ManuallyReplaced: true,
		ReviewedBy:       reviewedBy,
	})
	if err != nil {
		return nil, err
	}

	if s.artworkImgs != nil {
		if err := s.artworkImgs.ReplaceApprovedImage(ctx, updated.ArtworkID, imageURL); err != nil {
			s.log.Error("failed to propagate replacement image to artwork", "review_id", id, "error", err)
		}
	}

	if updated.ReviewType == repository.TypeArtworkProof {
		s.runProofApprovalActions(ctx, updated)
	} else {
		s.runHighresApprovalActions(ctx, updated)
	}

	return transport.FromReview(updated), nil
}

// runProofApprovalActions fires the customer-facing effects deferred from
// generation: completion email, mockup generation, and placeholder order
// synthesis when no order exists yet. Each action is attempted regardless of
// the others' outcomes.
func (s *Service) runProofApprovalActions(ctx context.Context, review *repository.Review) {
	accessToken := ""
	if s.artworks != nil {
		if artwork, err := s.artworks.GetArtworkInfo(ctx, review.ArtworkID); err == nil {
			accessToken = artwork.AccessToken
		} else {
			s.log.Error("failed to load artwork for approval actions", "review_id", review.ID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.ReviewApproved{
		BaseEvent:     events.NewBaseEvent(),
		ReviewID:      review.ID,
		ArtworkID:     review.ArtworkID,
		ReviewType:    review.ReviewType,
		CustomerName:  review.CustomerName,
		CustomerEmail: review.CustomerEmail,
		PetName:       review.PetName,
		AccessToken:   accessToken,
		ImageURL:      review.ImageURL,
	})

	if s.mockups != nil {
		if err := s.mockups.RequestMockups(ctx, review.ArtworkID, review.ImageURL); err != nil {
			s.log.Error("mockup generation request failed", "review_id", review.ID, "error", err)
		}
	}

	if s.orders != nil {
		if err := s.orders.EnsureOrderForArtwork(ctx, review.ArtworkID, review.CustomerName, review.CustomerEmail); err != nil {
			s.log.Error("placeholder order synthesis failed", "review_id", review.ID, "error", err)
		}
	}

	// The approved proof doubles as the print file. Hold it at the highres
	// checkpoint so fulfillment runs only after its own explicit sign-off.
	if _, err := s.Open(ctx, OpenParams{
		ArtworkID:     review.ArtworkID,
		ReviewType:    repository.TypeHighresFile,
		ImageURL:      review.ImageURL,
		BaseImageURL:  review.BaseImageURL,
		CustomerName:  review.CustomerName,
		CustomerEmail: review.CustomerEmail,
		PetName:       review.PetName,
	}); err != nil {
		s.log.Error("failed to open highres review after proof approval", "review_id", review.ID, "error", err)
	}
}

// runHighresApprovalActions submits the real fulfillment order for the most
// recent order awaiting review.
func (s *Service) runHighresApprovalActions(ctx context.Context, review *repository.Review) {
	s.bus.Publish(ctx, events.ReviewApproved{
		BaseEvent:     events.NewBaseEvent(),
		ReviewID:      review.ID,
		ArtworkID:     review.ArtworkID,
		ReviewType:    review.ReviewType,
		CustomerName:  review.CustomerName,
		CustomerEmail: review.CustomerEmail,
		PetName:       review.PetName,
		ImageURL:      review.ImageURL,
	})

	if s.fulfillment == nil {
		s.log.Error("highres review approved but no fulfillment submitter wired", "review_id", review.ID)
		return
	}
	if err := s.fulfillment.SubmitApprovedHighRes(ctx, review.ArtworkID, review.ImageURL); err != nil {
		s.log.Error("fulfillment submission failed", "review_id", review.ID, "error", err)
	}
}
