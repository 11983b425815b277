package adapters

import (
	"context"

	"pawtrait_backend/internal/artwork/domain"
	artworksvc "pawtrait_backend/internal/artwork/service"
	gensvc "pawtrait_backend/internal/generation/service"
	"pawtrait_backend/platform/apperr"

	"github.com/google/uuid"
)

// GenerationArtworkProgress records pipeline progress on the artwork record.
type GenerationArtworkProgress struct {
	svc *artworksvc.Service
}

func NewGenerationArtworkProgress(svc *artworksvc.Service) *GenerationArtworkProgress {
	return &GenerationArtworkProgress{svc: svc}
}

func (a *GenerationArtworkProgress) SourcePhotos(ctx context.Context, id uuid.UUID) (string, string, error) {
	artwork, err := a.svc.GetArtwork(ctx, id)
	if err != nil {
		return "", "", err
	}
	if !artwork.SourceImages.Complete() {
		return "", "", apperr.Validation("artwork is missing source photos")
	}
	return artwork.SourceImages.PersonPhoto, artwork.SourceImages.PetPhoto, nil
}

func (a *GenerationArtworkProgress) AdvanceStep(ctx context.Context, id uuid.UUID, step domain.GenerationStep, imageURL, generationRef string) error {
	_, err := a.svc.AdvanceStep(ctx, id, step, imageURL, generationRef)
	return err
}

func (a *GenerationArtworkProgress) MarkFailed(ctx context.Context, id uuid.UUID, step domain.GenerationStep, reason string) error {
	_, err := a.svc.MarkFailed(ctx, id, step, reason)
	return err
}

var _ gensvc.ArtworkProgress = (*GenerationArtworkProgress)(nil)
