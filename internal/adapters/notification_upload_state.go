package adapters

import (
	"context"

	artworksvc "pawtrait_backend/internal/artwork/service"
	"pawtrait_backend/internal/notification"

	"github.com/google/uuid"
)

// NotificationUploadState tells the reminder chain whether an artwork is
// still waiting for the customer's photos. The upload token is cleared the
// moment the customer resumes, so its presence is the awaiting signal.
type NotificationUploadState struct {
	svc *artworksvc.Service
}

func NewNotificationUploadState(svc *artworksvc.Service) *NotificationUploadState {
	return &NotificationUploadState{svc: svc}
}

func (a *NotificationUploadState) IsAwaitingUpload(ctx context.Context, artworkID uuid.UUID) (bool, error) {
	artwork, err := a.svc.GetArtwork(ctx, artworkID)
	if err != nil {
		return false, err
	}
	return artwork.UploadToken != nil && !artwork.SourceImages.Complete(), nil
}

var _ notification.UploadStateReader = (*NotificationUploadState)(nil)
