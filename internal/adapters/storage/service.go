// Package storage provides a domain-agnostic interface for S3-compatible object storage.
// Artwork source photos, generated images, and product mockups all live behind
// this adapter so the domain modules never touch the object store directly.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL is the result of a presign operation: the signed URL, the
// object key it targets, and when the signature stops working.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StorageService is what the domain modules see of the object store.
type StorageService interface {
	// GenerateUploadURL presigns a direct client upload. The folder becomes
	// the key prefix (e.g. "source").
	GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)

	// GenerateDownloadURL presigns a read of an existing object.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// DownloadFile streams an object; the caller closes the reader.
	DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)

	// DeleteObject removes a stored object.
	DeleteObject(ctx context.Context, bucket, fileKey string) error

	// UploadFile writes a stream into the bucket and returns the object key.
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)

	// FetchToStorage downloads the resource at sourceURL and stores it under
	// the given bucket/folder. Used to copy generation-provider output into
	// our own buckets so customer-facing URLs never point at the provider.
	FetchToStorage(ctx context.Context, bucket, folder, sourceURL string) (string, error)

	// EnsureBucketExists creates the bucket when missing.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// ValidateContentType rejects MIME types outside the photo allowlist.
	ValidateContentType(contentType string) error

	// ValidateFileSize enforces the configured size ceiling.
	ValidateFileSize(sizeBytes int64) error

	// GetMaxFileSize reports the upload size ceiling in bytes.
	GetMaxFileSize() int64
}

// Config is the MinIO connection configuration.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}
