package service

import (
	"context"
	"time"

	"pawtrait_backend/internal/artwork/domain"
	"pawtrait_backend/internal/artwork/repository"
	"pawtrait_backend/internal/artwork/transport"
	"pawtrait_backend/internal/events"
	"pawtrait_backend/internal/review/policy"
	"pawtrait_backend/platform/apperr"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/token"

	"github.com/google/uuid"
)

const accessTokenBytes = 32

// Store is the persistence interface the artwork service needs.
// Implemented by *repository.Repository.
type Store interface {
	Create(ctx context.Context, artwork *repository.Artwork) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Artwork, error)
	GetByAccessToken(ctx context.Context, accessToken string) (*repository.Artwork, error)
	GetByUploadToken(ctx context.Context, uploadToken string) (*repository.Artwork, error)
	ExtendAccessToken(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	UpdateCustomer(ctx context.Context, id uuid.UUID, name, email, petName string) error
	ClearUploadToken(ctx context.Context, id uuid.UUID) error
	UpdateGeneration(ctx context.Context, id uuid.UUID, apply func(*repository.Artwork) error) (*repository.Artwork, error)
}

// ProofReviewOpener creates a pending artwork-proof review when the policy
// holds completed generations for human approval. Implemented by an adapter
// wrapping the review service.
type ProofReviewOpener interface {
	OpenProofReview(ctx context.Context, params ProofReviewParams) error
}

// ProofReviewParams is the denormalized snapshot a review is created from.
type ProofReviewParams struct {
	ArtworkID     uuid.UUID
	ImageURL      string
	GenerationRef string
	CustomerName  string
	CustomerEmail string
	PetName       string
}

// MockupRequester triggers asynchronous product-mockup generation.
type MockupRequester interface {
	RequestMockups(ctx context.Context, artworkID uuid.UUID, imageURL string) error
}

// GenerationEnqueuer schedules the full generation pipeline run for an artwork.
type GenerationEnqueuer interface {
	EnqueueGeneration(ctx context.Context, artworkID uuid.UUID) error
}

// Service provides business logic for the artwork lifecycle.
type Service struct {
	store      Store
	bus        events.Bus
	policy     policy.Policy
	cfg        config.ArtworkConfig
	log        *logger.Logger
	reviews    ProofReviewOpener  // optional; nil when review module absent
	mockups    MockupRequester    // optional
	generation GenerationEnqueuer // optional
}

// New creates a new artwork service.
func New(store Store, bus events.Bus, reviewPolicy policy.Policy, cfg config.ArtworkConfig, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		policy: reviewPolicy,
		cfg:    cfg,
		log:    log,
	}
}

// SetProofReviewOpener injects the review-gate adapter (set after construction
// to break circular deps).
func (s *Service) SetProofReviewOpener(opener ProofReviewOpener) {
	s.reviews = opener
}

// SetMockupRequester injects the mockup-generation trigger.
func (s *Service) SetMockupRequester(requester MockupRequester) {
	s.mockups = requester
}

// SetGenerationEnqueuer injects the pipeline scheduler.
func (s *Service) SetGenerationEnqueuer(enqueuer GenerationEnqueuer) {
	s.generation = enqueuer
}

// Create registers a new artwork. When source images are provided the
// generation pipeline is scheduled immediately; otherwise an upload token is
// issued for the email-first flow.
func (s *Service) Create(ctx context.Context, req transport.CreateArtworkRequest) (*transport.CreateArtworkResponse, error) {
	accessToken, err := token.GenerateRandomToken(accessTokenBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate access token", err)
	}

	id := uuid.New()
	now := time.Now()
	artwork := &repository.Artwork{
		ID:               id,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		PetName:          req.PetName,
		AccessToken:      accessToken,
		TokenExpiresAt:   now.Add(s.cfg.GetArtworkTokenTTL()),
		GenerationStep:   domain.StepPending,
		ProcessingStatus: domain.NewProcessingStatus(),
		PriceVariant:     assignPriceVariant(id),
		UserType:         domain.UserType(req.UserType),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	deferred := req.SourceImages == nil
	var uploadToken string
	if deferred {
		uploadToken, err = token.GenerateRandomToken(accessTokenBytes)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to generate upload token", err)
		}
		expires := now.Add(s.cfg.GetUploadTokenTTL())
		artwork.UploadToken = &uploadToken
		artwork.UploadTokenExpiresAt = &expires
	} else {
		artwork.SourceImages = domain.SourceImages{
			PersonPhoto:    req.SourceImages.PersonPhoto,
			PetPhoto:       req.SourceImages.PetPhoto,
			PersonPhotoKey: req.SourceImages.PersonPhotoKey,
			PetPhotoKey:    req.SourceImages.PetPhotoKey,
		}
		started := now
		artwork.GenerationStartedAt = &started
	}

	if err := s.store.Create(ctx, artwork); err != nil {
		return nil, err
	}

	if deferred {
		s.bus.Publish(ctx, events.ArtworkDeferred{
			BaseEvent:     events.NewBaseEvent(),
			ArtworkID:     artwork.ID,
			CustomerName:  artwork.CustomerName,
			CustomerEmail: artwork.CustomerEmail,
			UploadToken:   uploadToken,
		})
	} else {
		s.bus.Publish(ctx, events.ArtworkCreated{
			BaseEvent:     events.NewBaseEvent(),
			ArtworkID:     artwork.ID,
			CustomerName:  artwork.CustomerName,
			CustomerEmail: artwork.CustomerEmail,
			PetName:       artwork.PetName,
			AccessToken:   artwork.AccessToken,
		})
		s.scheduleGeneration(ctx, artwork.ID)
	}

	return &transport.CreateArtworkResponse{
		ID:          artwork.ID,
		AccessToken: accessToken,
		UploadToken: uploadToken,
		ExpiresAt:   artwork.TokenExpiresAt,
	}, nil
}

// GetByAccessToken returns the customer-facing snapshot for a valid token.
// Expired tokens report gone, unknown tokens report not found.
func (s *Service) GetByAccessToken(ctx context.Context, accessToken string) (*transport.ArtworkResponse, error) {
	artwork, err := s.store.GetByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if time.Now().After(artwork.TokenExpiresAt) {
		return nil, apperr.Gone("access token expired")
	}
	return toResponse(artwork), nil
}

// ExtendAccessToken pushes the token expiry out by a full TTL from now.
func (s *Service) ExtendAccessToken(ctx context.Context, accessToken string) (*transport.ArtworkResponse, error) {
	artwork, err := s.store.GetByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.cfg.GetArtworkTokenTTL())
	if err := s.store.ExtendAccessToken(ctx, artwork.ID, expiresAt); err != nil {
		return nil, err
	}
	artwork.TokenExpiresAt = expiresAt
	return toResponse(artwork), nil
}

// ResumeByUploadToken completes a deferred creation: the customer followed
// their emailed link and finally provided the two photos.
func (s *Service) ResumeByUploadToken(ctx context.Context, uploadToken string, req transport.ResumeUploadRequest) (*transport.ArtworkResponse, error) {
	artwork, err := s.store.GetByUploadToken(ctx, uploadToken)
	if err != nil {
		return nil, err
	}
	if artwork.UploadTokenExpiresAt != nil && time.Now().After(*artwork.UploadTokenExpiresAt) {
		return nil, apperr.Gone("upload token expired")
	}

	if req.CustomerName != "" || req.PetName != "" {
		if err := s.store.UpdateCustomer(ctx, artwork.ID, req.CustomerName, "", req.PetName); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdateGeneration(ctx, artwork.ID, func(a *repository.Artwork) error {
		a.SourceImages = a.SourceImages.Merge(domain.SourceImages{
			PersonPhoto:    req.SourceImages.PersonPhoto,
			PetPhoto:       req.SourceImages.PetPhoto,
			PersonPhotoKey: req.SourceImages.PersonPhotoKey,
			PetPhotoKey:    req.SourceImages.PetPhotoKey,
		})
		if a.GenerationStartedAt == nil {
			started := time.Now()
			a.GenerationStartedAt = &started
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.ClearUploadToken(ctx, artwork.ID); err != nil {
		s.log.Error("failed to clear upload token", "artwork_id", artwork.ID, "error", err)
	}

	s.bus.Publish(ctx, events.ArtworkCreated{
		BaseEvent:     events.NewBaseEvent(),
		ArtworkID:     updated.ID,
		CustomerName:  updated.CustomerName,
		CustomerEmail: updated.CustomerEmail,
		PetName:       updated.PetName,
		AccessToken:   updated.AccessToken,
	})
	s.scheduleGeneration(ctx, updated.ID)

	return toResponse(updated), nil
}

// AdvanceStep applies a step completion with step-dependent image writes.
// Side effects (completion email, review creation, mockup trigger) fire only
// on the first transition into completed, never on repeats.
func (s *Service) AdvanceStep(ctx context.Context, id uuid.UUID, step domain.GenerationStep, imageURL, generationRef string) (*transport.ArtworkResponse, error) {
	if !ValidAdvanceTarget(step) {
		return nil, apperr.Validation("unknown generation step")
	}

	var prevStep domain.GenerationStep
	updated, err := s.store.UpdateGeneration(ctx, id, func(a *repository.Artwork) error {
		prevStep = a.GenerationStep
		if !domain.CanAdvance(a.GenerationStep, step) {
			return apperr.Conflict("generation step cannot move from " + string(a.GenerationStep) + " to " + string(step))
		}

		switch step {
		case domain.StepMonaLisaGeneration:
			a.GeneratedImages = a.GeneratedImages.Merge(domain.GeneratedImages{
				MonaLisaBase:  imageURL,
				GenerationRef: generationRef,
			})
		case domain.StepCompleted:
			a.GeneratedImages = a.GeneratedImages.Merge(domain.GeneratedImages{
				ArtworkPreview: imageURL,
				ArtworkFullRes: imageURL,
				GenerationRef:  generationRef,
			})
			a.DeliveryImages = a.DeliveryImages.Merge(domain.DeliveryImages{DigitalDownload: imageURL})
			a.ProcessingStatus = a.ProcessingStatus.Merge(domain.ProcessingStatus{
				ArtworkGeneration: domain.ProcessCompleted,
				Upscaling:         domain.ProcessCompleted,
			})
			if a.GenerationCompletedAt == nil {
				completedAt := time.Now()
				a.GenerationCompletedAt = &completedAt
			}
		default:
			a.GeneratedImages = a.GeneratedImages.Merge(domain.GeneratedImages{
				ArtworkPreview: imageURL,
				GenerationRef:  generationRef,
			})
			// Pet integration done means the upscale stage is next in flight.
			a.ProcessingStatus = a.ProcessingStatus.Merge(domain.ProcessingStatus{
				ArtworkGeneration: domain.ProcessProcessing,
				Upscaling:         domain.ProcessProcessing,
			})
		}

		if a.GenerationStartedAt == nil {
			started := time.Now()
			a.GenerationStartedAt = &started
		}
		a.GenerationStep = step
		return nil
	})
	if err != nil {
		return nil, err
	}

	if prevStep != domain.StepCompleted && step == domain.StepCompleted {
		s.onFirstCompletion(ctx, updated)
	}

	s.log.GenerationEvent(updated.ID.String(), string(step), true, "")
	return toResponse(updated), nil
}

// MarkFailed records a terminal generation failure. Retry is an explicit
// action that re-enters the pipeline at pending; nothing happens automatically.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, step domain.GenerationStep, reason string) (*transport.ArtworkResponse, error) {
	updated, err := s.store.UpdateGeneration(ctx, id, func(a *repository.Artwork) error {
		if !domain.CanAdvance(a.GenerationStep, domain.StepFailed) {
			return apperr.Conflict("artwork is already in a terminal failed state")
		}
		a.GenerationStep = domain.StepFailed
		failed := domain.ProcessingStatus{ArtworkGeneration: domain.ProcessFailed}
		if step == domain.StepCompleted {
			// The pipeline fails toward completed only from the upscale stage.
			failed.Upscaling = domain.ProcessFailed
		}
		a.ProcessingStatus = a.ProcessingStatus.Merge(failed)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.GenerationFailed{
		BaseEvent: events.NewBaseEvent(),
		ArtworkID: id,
		Step:      string(step),
		Reason:    reason,
	})
	s.log.GenerationEvent(id.String(), string(step), false, reason)
	return toResponse(updated), nil
}

// RetryGeneration re-enters a failed artwork at pending and reschedules the
// pipeline. Requires both source photos to still be present.
func (s *Service) RetryGeneration(ctx context.Context, id uuid.UUID) (*transport.ArtworkResponse, error) {
	updated, err := s.store.UpdateGeneration(ctx, id, func(a *repository.Artwork) error {
		if a.GenerationStep != domain.StepFailed {
			return apperr.Conflict("only failed artworks can be retried")
		}
		if !a.SourceImages.Complete() {
			return apperr.Validation("source photos are no longer available")
		}
		a.GenerationStep = domain.StepPending
		a.ProcessingStatus = a.ProcessingStatus.Merge(domain.ProcessingStatus{ArtworkGeneration: domain.ProcessPending})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.scheduleGeneration(ctx, id)
	return toResponse(updated), nil
}

// OverlayImages merges admin- or collaborator-supplied image fields onto the
// artwork without moving the generation step and without firing side effects.
// Used for mockup caching and admin image replacement.
func (s *Service) OverlayImages(ctx context.Context, id uuid.UUID, generated domain.GeneratedImages, delivery domain.DeliveryImages, processing domain.ProcessingStatus) error {
	_, err := s.store.UpdateGeneration(ctx, id, func(a *repository.Artwork) error {
		a.GeneratedImages = a.GeneratedImages.Merge(generated)
		a.DeliveryImages = a.DeliveryImages.Merge(delivery)
		a.ProcessingStatus = a.ProcessingStatus.Merge(processing)
		return nil
	})
	return err
}

// GetArtwork returns the raw record for cross-module collaborators.
func (s *Service) GetArtwork(ctx context.Context, id uuid.UUID) (*repository.Artwork, error) {
	return s.store.GetByID(ctx, id)
}

// onFirstCompletion fires the completion side effects exactly once per
// transition into completed. With human review enabled the customer-facing
// effects are deferred to the review gate's approval action.
func (s *Service) onFirstCompletion(ctx context.Context, artwork *repository.Artwork) {
	if s.policy.RequiresProofReview() {
		if s.reviews == nil {
			s.log.Error("human review enabled but no review gate wired", "artwork_id", artwork.ID)
			return
		}
		err := s.reviews.OpenProofReview(ctx, ProofReviewParams{
			ArtworkID:     artwork.ID,
			ImageURL:      artwork.GeneratedImages.ArtworkPreview,
			GenerationRef: artwork.GeneratedImages.GenerationRef,
			CustomerName:  artwork.CustomerName,
			CustomerEmail: artwork.CustomerEmail,
			PetName:       artwork.PetName,
		})
		if err != nil {
			s.log.Error("failed to open proof review", "artwork_id", artwork.ID, "error", err)
		}
		return
	}

	s.bus.Publish(ctx, events.ArtworkCompleted{
		BaseEvent:     events.NewBaseEvent(),
		ArtworkID:     artwork.ID,
		CustomerName:  artwork.CustomerName,
		CustomerEmail: artwork.CustomerEmail,
		PetName:       artwork.PetName,
		AccessToken:   artwork.AccessToken,
		ImageURL:      artwork.GeneratedImages.ArtworkPreview,
	})

	if s.mockups != nil {
		if err := s.mockups.RequestMockups(ctx, artwork.ID, artwork.GeneratedImages.ArtworkFullRes); err != nil {
			s.log.Error("mockup generation request failed", "artwork_id", artwork.ID, "error", err)
		}
	}
}

func (s *Service) scheduleGeneration(ctx context.Context, artworkID uuid.UUID) {
	if s.generation == nil {
		return
	}
	if err := s.generation.EnqueueGeneration(ctx, artworkID); err != nil {
		s.log.Error("failed to enqueue generation pipeline", "artwork_id", artworkID, "error", err)
	}
}

// ValidAdvanceTarget reports whether a step may be named as the target of an
// advance operation. Failed has its own entry point.
func ValidAdvanceTarget(step domain.GenerationStep) bool {
	return step != domain.StepFailed && domain.ValidStep(step)
}

// assignPriceVariant deterministically buckets an artwork into a pricing
// experiment arm. Stored server-side so the variant survives device changes.
func assignPriceVariant(id uuid.UUID) string {
	if id[0]%2 == 0 {
		return "A"
	}
	return "B"
}

func toResponse(a *repository.Artwork) *transport.ArtworkResponse {
	return &transport.ArtworkResponse{
		ID:                    a.ID,
		CustomerName:          a.CustomerName,
		CustomerEmail:         a.CustomerEmail,
		PetName:               a.PetName,
		GenerationStep:        a.GenerationStep,
		SourceImages:          a.SourceImages,
		GeneratedImages:       a.GeneratedImages,
		DeliveryImages:        a.DeliveryImages,
		ProcessingStatus:      a.ProcessingStatus,
		PriceVariant:          a.PriceVariant,
		UserType:              a.UserType,
		GenerationStartedAt:   a.GenerationStartedAt,
		GenerationCompletedAt: a.GenerationCompletedAt,
		CreatedAt:             a.CreatedAt,
	}
}
