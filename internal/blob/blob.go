// Package blob fetches raw uploaded document bytes from object storage.
package blob

import "context"

// Downloader fetches the bytes stored under a file key.
type Downloader interface {
	// Download returns the object body. Unknown keys return
	// pkg/errors.ErrBlobNotFound.
	Download(ctx context.Context, fileKey string) ([]byte, error)
}
