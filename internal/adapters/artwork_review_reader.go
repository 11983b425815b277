package adapters

import (
	"context"

	"pawtrait_backend/internal/artwork/domain"
	artworksvc "pawtrait_backend/internal/artwork/service"
	reviewsvc "pawtrait_backend/internal/review/service"

	"github.com/google/uuid"
)

// ArtworkReviewReader exposes artwork state to the review gate.
type ArtworkReviewReader struct {
	svc *artworksvc.Service
}

func NewArtworkReviewReader(svc *artworksvc.Service) *ArtworkReviewReader {
	return &ArtworkReviewReader{svc: svc}
}

func (a *ArtworkReviewReader) GetArtworkInfo(ctx context.Context, id uuid.UUID) (*reviewsvc.ArtworkInfo, error) {
	artwork, err := a.svc.GetArtwork(ctx, id)
	if err != nil {
		return nil, err
	}

	return &reviewsvc.ArtworkInfo{
		ID:            artwork.ID,
		CustomerName:  artwork.CustomerName,
		CustomerEmail: artwork.CustomerEmail,
		PetName:       artwork.PetName,
		AccessToken:   artwork.AccessToken,
		PersonPhoto:   artwork.SourceImages.PersonPhoto,
		PetPhoto:      artwork.SourceImages.PetPhoto,
		MonaLisaBase:  artwork.GeneratedImages.MonaLisaBase,
	}, nil
}

// ReplaceApprovedImage swaps the customer-visible artwork for an
// admin-approved replacement.
func (a *ArtworkReviewReader) ReplaceApprovedImage(ctx context.Context, artworkID uuid.UUID, imageURL string) error {
	return a.svc.OverlayImages(ctx, artworkID,
		domain.GeneratedImages{ArtworkPreview: imageURL, ArtworkFullRes: imageURL},
		domain.DeliveryImages{DigitalDownload: imageURL},
		domain.ProcessingStatus{})
}

var _ reviewsvc.ArtworkReader = (*ArtworkReviewReader)(nil)
var _ reviewsvc.ArtworkImageWriter = (*ArtworkReviewReader)(nil)
