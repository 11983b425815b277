package adapters

import (
	"context"

	"pawtrait_backend/internal/artwork/domain"
	artworksvc "pawtrait_backend/internal/artwork/service"
	fulfillsvc "pawtrait_backend/internal/fulfillment/service"

	"github.com/google/uuid"
)

// FulfillmentMockupWriter caches rendered product mockups on the artwork.
type FulfillmentMockupWriter struct {
	svc *artworksvc.Service
}

func NewFulfillmentMockupWriter(svc *artworksvc.Service) *FulfillmentMockupWriter {
	return &FulfillmentMockupWriter{svc: svc}
}

func (a *FulfillmentMockupWriter) CacheMockups(ctx context.Context, artworkID uuid.UUID, mockups map[string]string) error {
	return a.svc.OverlayImages(ctx, artworkID,
		domain.GeneratedImages{},
		domain.DeliveryImages{Mockups: mockups},
		domain.ProcessingStatus{MockupGeneration: domain.ProcessCompleted})
}

func (a *FulfillmentMockupWriter) MarkMockupsFailed(ctx context.Context, artworkID uuid.UUID) error {
	return a.svc.OverlayImages(ctx, artworkID,
		domain.GeneratedImages{},
		domain.DeliveryImages{},
		domain.ProcessingStatus{MockupGeneration: domain.ProcessFailed})
}

var _ fulfillsvc.ArtworkMockupWriter = (*FulfillmentMockupWriter)(nil)
