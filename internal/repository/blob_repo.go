package repository

import "context"

// BlobRepository stores image bytes and hands back a public URL.
// Implementations must be safe for concurrent use by independent runs.
type BlobRepository interface {
	PutBytes(ctx context.Context, data []byte, objectName, contentType string) (string, error)
}
