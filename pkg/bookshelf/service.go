package bookshelf

import "context"

// Service is the catalog service: admin-gated publish on the write path,
// anonymous search and proxy streaming on the read path.
type Service interface {
	// Categories returns the known categories in configured order.
	Categories() []Category

	// Search returns the category's books in catalog order whose file name
	// contains the query, case-insensitively. An empty query returns all
	// books. Search is read-only and always succeeds; an unknown category
	// yields an empty result.
	Search(category Category, query string) []BookRecord

	// SearchAll runs Search across every known category.
	SearchAll(query string) Catalog

	// Publish validates the request, publishes the document to the remote
	// store, persists the optional cover locally, then appends the record
	// and flushes the catalog snapshot. Any failure short-circuits and
	// leaves the catalog untouched.
	Publish(ctx context.Context, req PublishRequest) (*BookRecord, error)

	// Retrieve looks up the first record matching fileName in the category
	// and opens a proxied stream for it with the requested disposition.
	Retrieve(ctx context.Context, category Category, fileName string, mode Disposition) (*Download, error)

	// OpenCover streams a locally stored cover image.
	OpenCover(ctx context.Context, category Category, fileName string) (*Download, error)
}
