package bookshelf

import (
	"context"
	"io"
)

// BlobPublisher puts a book's byte stream in a remote store and returns a
// stable locator for it. Implementations must transmit the stream without
// buffering it wholly in memory and must namespace the remote object by
// category so concurrent uploads cannot collide.
type BlobPublisher interface {
	Publish(ctx context.Context, category Category, fileName string, r io.Reader) (Locator, error)
}

// BlobRetriever opens a readable stream for a previously published locator.
// Bytes are relayed incrementally; a remote failure is a *RetrieveError, not
// a not-found.
type BlobRetriever interface {
	Open(ctx context.Context, loc Locator) (io.ReadCloser, *BlobInfo, error)
}

// CatalogStore persists the full catalog snapshot. Load is called once at
// startup; missing persisted state yields an empty catalog. Save overwrites
// the whole snapshot and is serialized by the caller.
type CatalogStore interface {
	Load(ctx context.Context) (Catalog, error)
	Save(ctx context.Context, c Catalog) error
}

// CoverStore owns locally stored cover images, keyed by category and file
// name. Its lifecycle is independent from the remote blobs.
type CoverStore interface {
	Save(ctx context.Context, category Category, fileName string, r io.Reader) error
	Open(ctx context.Context, category Category, fileName string) (io.ReadCloser, *BlobInfo, error)
}

// BlobInfo reports what the backing store knows about a stream. Size is -1
// when unknown.
type BlobInfo struct {
	Size        int64
	ContentType string
}
