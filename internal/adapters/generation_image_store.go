package adapters

import (
	"context"

	"pawtrait_backend/internal/adapters/storage"
	gensvc "pawtrait_backend/internal/generation/service"
)

// GenerationImageStore copies generation-provider output into owned object
// storage and resolves customer-facing URLs for the stored files.
type GenerationImageStore struct {
	storage storage.StorageService
}

func NewGenerationImageStore(svc storage.StorageService) *GenerationImageStore {
	return &GenerationImageStore{storage: svc}
}

func (a *GenerationImageStore) FetchToStorage(ctx context.Context, bucket, folder, sourceURL string) (string, error) {
	return a.storage.FetchToStorage(ctx, bucket, folder, sourceURL)
}

func (a *GenerationImageStore) DownloadURL(ctx context.Context, bucket, fileKey string) (string, error) {
	presigned, err := a.storage.GenerateDownloadURL(ctx, bucket, fileKey)
	if err != nil {
		return "", err
	}
	return presigned.URL, nil
}

var _ gensvc.ImageStore = (*GenerationImageStore)(nil)
