// Package memory is an in-memory publisher/retriever pair, used in tests.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
)

// Backend implements bookshelf.BlobPublisher and bookshelf.BlobRetriever
// over a process-local map keyed by direct URL.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory backend
func New() *Backend {
	return &Backend{objects: make(map[string][]byte)}
}

// Publish stores the stream and mints a memory:// locator for it.
func (b *Backend) Publish(ctx context.Context, category bookshelf.Category, fileName string, r io.Reader) (bookshelf.Locator, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return bookshelf.Locator{}, &bookshelf.PublishError{Category: category, FileName: fileName, Err: err}
	}

	direct := fmt.Sprintf("memory://%s/%s", category, fileName)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[direct] = data

	return bookshelf.Locator{DirectURL: direct}, nil
}

// Open returns the stored bytes for the locator.
func (b *Backend) Open(ctx context.Context, loc bookshelf.Locator) (io.ReadCloser, *bookshelf.BlobInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[loc.DirectURL]
	if !exists {
		return nil, nil, &bookshelf.RetrieveError{URL: loc.DirectURL, Err: errors.New("object not found")}
	}

	info := &bookshelf.BlobInfo{
		Size:        int64(len(data)),
		ContentType: http.DetectContentType(data),
	}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

// Len reports how many objects the backend holds.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
