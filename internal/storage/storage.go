// Package storage provides the temporary files used while embedding a cover
// image and optional S3 publishing of finished videos.
// It defines the Storage interface (port) and implementations for local disk
// and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary and published files.
type Storage interface {
	// SaveTemp writes data to a file called name inside the temp directory
	// and returns its path. The name is deterministic: an existing file with
	// the same name is replaced.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Publish uploads the file at localPath under key and returns its URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	Publish(ctx context.Context, key, localPath string) (url string, err error)
}
