package storage

import (
	"context"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService defines the public interface for the object storage backing room covers.
type StorageService interface {
	// PresignUpload generates a pre-signed URL for uploading an object.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a pre-signed URL for downloading an object.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)
}

// NewStorageService is the factory function for StorageService.
// It initializes and returns a concrete implementation based on the provided configuration.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Client(ctx, cfg)
}
