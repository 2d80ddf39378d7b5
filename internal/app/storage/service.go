/*
Package storage handles class recording artifacts in S3-compatible object
storage. Clients upload and download recordings through presigned URLs; the
server never proxies recording bytes.
*/
package storage

import (
	"context"
	"fmt"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// RecordingStorage defines the public interface for the recording storage
// service.
type RecordingStorage interface {
	// PresignUpload generates a pre-signed URL for uploading a recording.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a pre-signed URL for downloading a recording.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the recording object with the given key.
	Delete(ctx context.Context, key string) error

	// GetObjectMetadata retrieves the object's metadata.
	GetObjectMetadata(ctx context.Context, key string) (map[string]string, error)
}

// RecordingKey builds the canonical object key for one recording segment of
// a class.
func RecordingKey(classID, recordingID string) string {
	return fmt.Sprintf("recordings/%s/%s.webm", classID, recordingID)
}

// NewRecordingStorage is the factory function for RecordingStorage. Only
// S3-compatible backends are supported.
func NewRecordingStorage(cfg ServiceConfig) (RecordingStorage, error) {
	return newS3Client(cfg)
}
