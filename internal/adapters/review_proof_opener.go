// Package adapters wires module services together behind the narrow
// interfaces each consumer declares, keeping the bounded contexts free of
// direct dependencies on one another.
package adapters

import (
	"context"

	artworksvc "pawtrait_backend/internal/artwork/service"
	"pawtrait_backend/internal/review/repository"
	reviewsvc "pawtrait_backend/internal/review/service"
)

// ReviewProofOpener opens an artwork-proof review when the artwork module
// holds a completed generation for human approval.
type ReviewProofOpener struct {
	svc *reviewsvc.Service
}

func NewReviewProofOpener(svc *reviewsvc.Service) *ReviewProofOpener {
	return &ReviewProofOpener{svc: svc}
}

func (a *ReviewProofOpener) OpenProofReview(ctx context.Context, params artworksvc.ProofReviewParams) error {
	_, err := a.svc.Open(ctx, reviewsvc.OpenParams{
		ArtworkID:     params.ArtworkID,
		ReviewType:    repository.TypeArtworkProof,
		ImageURL:      params.ImageURL,
		GenerationRef: params.GenerationRef,
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		PetName:       params.PetName,
	})
	return err
}

var _ artworksvc.ProofReviewOpener = (*ReviewProofOpener)(nil)
