package storage

import "context"

// Archiver copies a generation result from the provider's temporary URL
// into our own bucket and returns the durable public URL.
type Archiver interface {
	ArchiveFromURL(ctx context.Context, key, sourceURL string) (string, error)
	Delete(ctx context.Context, key string) error
}
