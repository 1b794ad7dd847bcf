package gcsuploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/rutwin/cashflow/internal/gcs"
)

// uploadTimeout bounds a single report write.
const uploadTimeout = 2 * time.Minute

// GCSStorageService is the concrete implementation of gcs.StorageService
// that interacts with Google Cloud Storage. It holds one client for its
// lifetime.
type GCSStorageService struct {
	client *storage.Client
}

var _ gcs.StorageService = (*GCSStorageService)(nil)

// NewGCSStorageService creates a storage client.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
func NewGCSStorageService(ctx context.Context) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: create storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close releases the underlying client.
func (s *GCSStorageService) Close() error {
	return s.client.Close()
}

// Fetch downloads the file bytes from the given GCS URI.
func (s *GCSStorageService) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucketName, objectPath, err := gcs.ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rc, err := s.client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// UploadJSON writes v as a JSON object and returns its gs:// URI.
func (s *GCSStorageService) UploadJSON(ctx context.Context, bucketName, objectName string, v any) (string, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("UploadJSON: encoding report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("UploadJSON: writing %s/%s: %w", bucketName, objectName, err)
	}

	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadJSON: finalize upload: %w", err)
	}

	return gcs.URI(bucketName, objectName), nil
}
