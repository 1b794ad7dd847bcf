// Package gcs holds the storage abstraction used to read transaction exports
// and publish analysis reports.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"
)

// ErrInvalidURI is returned for locations that are not gs://bucket/object.
var ErrInvalidURI = errors.New("invalid gcs uri")

const scheme = "gs://"

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// Fetch downloads the object bytes at a gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)

	// UploadJSON encodes v as indented JSON, writes it to bucket/object and
	// returns the object's gs:// URI.
	UploadJSON(ctx context.Context, bucket, object string, v any) (string, error)
}

// IsURI reports whether location names a storage object rather than a local path.
func IsURI(location string) bool {
	return strings.HasPrefix(location, scheme)
}

// ParseURI splits gs://bucket/path/to/object into its bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w (no object path): %s", ErrInvalidURI, uri)
	}
	return parts[0], parts[1], nil
}

// URI formats a bucket and object path as gs://bucket/object.
func URI(bucket, object string) string {
	return scheme + bucket + "/" + object
}

// ExtractFilename returns the last path element of a gs:// URI.
// e.g., "gs://bucket/exports/june.json" → "june.json"
func ExtractFilename(uri string) string {
	trimmed := strings.TrimPrefix(uri, scheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// ReportObject names the object a report is written to:
// reports/<kind>/<account or "all">/<UTC timestamp>.json
func ReportObject(kind, accountID string, at time.Time) string {
	if accountID == "" {
		accountID = "all"
	}
	return path.Join("reports", kind, accountID, at.UTC().Format("20060102T150405Z")+".json")
}

// ReadInput loads an export from a gs:// URI through svc, or from the local
// filesystem otherwise. svc may be nil when only local paths are used.
func ReadInput(ctx context.Context, svc StorageService, location string) ([]byte, error) {
	if !IsURI(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("ReadInput: %w", err)
		}
		return data, nil
	}
	if svc == nil {
		return nil, fmt.Errorf("ReadInput: no storage client configured for %s", location)
	}
	data, err := svc.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("ReadInput: %w", err)
	}
	return data, nil
}
