package adapters

import (
	"context"

	artworksvc "pawtrait_backend/internal/artwork/service"
	ordersvc "pawtrait_backend/internal/order/service"
	"pawtrait_backend/internal/order/transport"

	"github.com/google/uuid"
)

// OrderArtworkSummary enriches the order-confirmation view with the linked
// artwork's preview and access token.
type OrderArtworkSummary struct {
	svc *artworksvc.Service
}

func NewOrderArtworkSummary(svc *artworksvc.Service) *OrderArtworkSummary {
	return &OrderArtworkSummary{svc: svc}
}

func (a *OrderArtworkSummary) GetArtworkSummary(ctx context.Context, id uuid.UUID) (*transport.ArtworkSummary, error) {
	artwork, err := a.svc.GetArtwork(ctx, id)
	if err != nil {
		return nil, err
	}
	return &transport.ArtworkSummary{
		ID:           artwork.ID,
		PetName:      artwork.PetName,
		PreviewImage: artwork.GeneratedImages.ArtworkPreview,
		AccessToken:  artwork.AccessToken,
	}, nil
}

var _ ordersvc.ArtworkSummaryReader = (*OrderArtworkSummary)(nil)
