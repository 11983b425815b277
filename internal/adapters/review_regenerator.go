package adapters

import (
	"context"

	gensvc "pawtrait_backend/internal/generation/service"
	reviewsvc "pawtrait_backend/internal/review/service"
)

// ReviewRegenerator runs the generation pipeline for admin-directed
// regeneration from the review gate.
type ReviewRegenerator struct {
	runner *gensvc.Runner
}

func NewReviewRegenerator(runner *gensvc.Runner) *ReviewRegenerator {
	return &ReviewRegenerator{runner: runner}
}

func (a *ReviewRegenerator) Regenerate(ctx context.Context, params reviewsvc.RegenerationParams) (*reviewsvc.RegenerationResult, error) {
	out, err := a.runner.Regenerate(ctx, gensvc.RegenerationInput{
		PersonPhotoURL: params.PersonPhotoURL,
		PetPhotoURL:    params.PetPhotoURL,
		CurrentBaseURL: params.CurrentBaseURL,
		PromptTweak:    params.PromptTweak,
		RegenerateBase: params.RegenerateBase,
	})
	if err != nil {
		return nil, err
	}
	return &reviewsvc.RegenerationResult{
		ImageURL:      out.ImageURL,
		BaseImageURL:  out.BaseImageURL,
		GenerationRef: out.GenerationRef,
	}, nil
}

var _ reviewsvc.Regenerator = (*ReviewRegenerator)(nil)
