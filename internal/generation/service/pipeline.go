package service

import (
	"context"
	"fmt"

	"pawtrait_backend/internal/artwork/domain"
	"pawtrait_backend/internal/generation/client"
	"pawtrait_backend/platform/apperr"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
)

// ModelClient is the generation provider surface. Implemented by *client.Client.
type ModelClient interface {
	GenerateStyleBase(ctx context.Context, personPhotoURL string) (*client.Result, error)
	CompositePet(ctx context.Context, basePortraitURL, petPhotoURL, promptTweak string) (*client.Result, error)
	Upscale(ctx context.Context, imageURL string) (*client.Result, error)
}

// ArtworkProgress is the artwork-side surface the pipeline drives.
// Implemented by an adapter over the artwork service.
type ArtworkProgress interface {
	SourcePhotos(ctx context.Context, id uuid.UUID) (personURL, petURL string, err error)
	AdvanceStep(ctx context.Context, id uuid.UUID, step domain.GenerationStep, imageURL, generationRef string) error
	MarkFailed(ctx context.Context, id uuid.UUID, step domain.GenerationStep, reason string) error
}

// ImageStore copies provider-hosted results into owned object storage.
// Implemented by the MinIO storage service.
type ImageStore interface {
	FetchToStorage(ctx context.Context, bucket, folder, sourceURL string) (string, error)
	DownloadURL(ctx context.Context, bucket, fileKey string) (string, error)
}

// RegenerationInput describes one admin-directed regeneration run.
type RegenerationInput struct {
	PersonPhotoURL string
	PetPhotoURL    string
	CurrentBaseURL string
	PromptTweak    string
	RegenerateBase bool
}

// RegenerationOutput is the outcome of a regeneration run.
type RegenerationOutput struct {
	ImageURL      string
	BaseImageURL  string
	GenerationRef string
}

// Runner executes the three-stage generation pipeline for an artwork:
// style base from the person photo, pet compositing, upscale. Progress is
// recorded step by step so a completed stage survives a later failure.
type Runner struct {
	models   ModelClient
	artworks ArtworkProgress
	store    ImageStore // optional; provider URLs are used directly without it
	bucket   string
	log      *logger.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(models ModelClient, artworks ArtworkProgress, log *logger.Logger) *Runner {
	return &Runner{models: models, artworks: artworks, log: log}
}

// SetImageStore injects owned object storage for generated results.
func (r *Runner) SetImageStore(store ImageStore, bucket string) {
	r.store = store
	r.bucket = bucket
}

// Run executes the full pipeline. On failure the artwork is marked failed at
// the stage that broke; retry re-enters from pending.
func (r *Runner) Run(ctx context.Context, artworkID uuid.UUID) error {
	personURL, petURL, err := r.artworks.SourcePhotos(ctx, artworkID)
	if err != nil {
		return err
	}
	if personURL == "" || petURL == "" {
		return apperr.Validation("artwork is missing source photos")
	}

	base, err := r.models.GenerateStyleBase(ctx, personURL)
	if err != nil {
		return r.fail(ctx, artworkID, domain.StepMonaLisaGeneration, err)
	}
	baseURL := r.copyToStorage(ctx, artworkID, "base", base.ImageURL)
	if err := r.artworks.AdvanceStep(ctx, artworkID, domain.StepMonaLisaGeneration, baseURL, base.RequestID); err != nil {
		return err
	}

	composite, err := r.models.CompositePet(ctx, baseURL, petURL, "")
	if err != nil {
		return r.fail(ctx, artworkID, domain.StepPetIntegration, err)
	}
	compositeURL := r.copyToStorage(ctx, artworkID, "composite", composite.ImageURL)
	if err := r.artworks.AdvanceStep(ctx, artworkID, domain.StepPetIntegration, compositeURL, composite.RequestID); err != nil {
		return err
	}

	upscaled, err := r.models.Upscale(ctx, compositeURL)
	if err != nil {
		return r.fail(ctx, artworkID, domain.StepCompleted, err)
	}
	finalURL := r.copyToStorage(ctx, artworkID, "final", upscaled.ImageURL)
	if err := r.artworks.AdvanceStep(ctx, artworkID, domain.StepCompleted, finalURL, upscaled.RequestID); err != nil {
		return err
	}

	r.log.Info("generation pipeline finished", "artwork_id", artworkID)
	return nil
}

// Regenerate produces a fresh candidate image without touching the artwork's
// lifecycle; the review gate decides what happens to the result. The base
// portrait is reused unless the admin asked for a full rerun.
func (r *Runner) Regenerate(ctx context.Context, in RegenerationInput) (*RegenerationOutput, error) {
	if in.PersonPhotoURL == "" || in.PetPhotoURL == "" {
		return nil, apperr.Validation("regeneration requires both source photos")
	}

	baseURL := in.CurrentBaseURL
	if in.RegenerateBase || baseURL == "" {
		base, err := r.models.GenerateStyleBase(ctx, in.PersonPhotoURL)
		if err != nil {
			return nil, fmt.Errorf("regenerating base portrait: %w", err)
		}
		baseURL = base.ImageURL
	}

	composite, err := r.models.CompositePet(ctx, baseURL, in.PetPhotoURL, in.PromptTweak)
	if err != nil {
		return nil, fmt.Errorf("compositing pet: %w", err)
	}

	return &RegenerationOutput{
		ImageURL:      composite.ImageURL,
		BaseImageURL:  baseURL,
		GenerationRef: composite.RequestID,
	}, nil
}

func (r *Runner) fail(ctx context.Context, artworkID uuid.UUID, step domain.GenerationStep, cause error) error {
	if err := r.artworks.MarkFailed(ctx, artworkID, step, cause.Error()); err != nil {
		r.log.Error("failed to mark artwork generation as failed", "artwork_id", artworkID, "step", step, "error", err)
	}
	return fmt.Errorf("generation step %s: %w", step, cause)
}

// copyToStorage moves a provider-hosted image into owned storage. Provider
// URLs expire; losing the copy step degrades durability, not correctness, so
// failures fall back to the provider URL.
func (r *Runner) copyToStorage(ctx context.Context, artworkID uuid.UUID, stage, sourceURL string) string {
	if r.store == nil {
		return sourceURL
	}
	folder := fmt.Sprintf("%s/%s", artworkID, stage)
	fileKey, err := r.store.FetchToStorage(ctx, r.bucket, folder, sourceURL)
	if err != nil {
		r.log.Warn("could not copy generated image into storage", "artwork_id", artworkID, "stage", stage, "error", err)
		return sourceURL
	}
	url, err := r.store.DownloadURL(ctx, r.bucket, fileKey)
	if err != nil {
		r.log.Warn("could not build download url for stored image", "artwork_id", artworkID, "file_key", fileKey, "error", err)
		return sourceURL
	}
	return url
}
