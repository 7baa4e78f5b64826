package bookshelf

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

// service implements the Service interface
type service struct {
	store     CatalogStore
	publisher BlobPublisher
	retriever BlobRetriever
	covers    CoverStore

	categories []Category
	docExts    map[string]struct{}
	imgExts    map[string]struct{}

	// mu guards catalog. Appending a record and flushing the snapshot happen
	// inside one critical section; remote I/O never does.
	mu      sync.RWMutex
	catalog Catalog
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithCatalogStore sets the snapshot store for the service
func WithCatalogStore(store CatalogStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithPublisher sets the remote blob publisher
func WithPublisher(p BlobPublisher) Option {
	return func(s *service) {
		s.publisher = p
	}
}

// WithRetriever sets the remote blob retriever
func WithRetriever(r BlobRetriever) Option {
	return func(s *service) {
		s.retriever = r
	}
}

// WithCoverStore sets the local cover image store
func WithCoverStore(store CoverStore) Option {
	return func(s *service) {
		s.covers = store
	}
}

// WithCategories sets the closed set of known categories
func WithCategories(categories ...Category) Option {
	return func(s *service) {
		s.categories = categories
	}
}

// WithAllowedDocExtensions sets the document extension allow-list
func WithAllowedDocExtensions(exts ...string) Option {
	return func(s *service) {
		s.docExts = extSet(exts)
	}
}

// WithAllowedImageExtensions sets the cover image extension allow-list
func WithAllowedImageExtensions(exts ...string) Option {
	return func(s *service) {
		s.imgExts = extSet(exts)
	}
}

func extSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return set
}

// New creates a new service instance and loads the catalog snapshot from the
// configured store. Missing persisted state yields an empty catalog seeded
// with all known categories.
func New(ctx context.Context, options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	if s.publisher == nil {
		return nil, fmt.Errorf("blob publisher is required")
	}
	if s.retriever == nil {
		return nil, fmt.Errorf("blob retriever is required")
	}
	if s.covers == nil {
		return nil, fmt.Errorf("cover store is required")
	}
	if len(s.categories) == 0 {
		return nil, fmt.Errorf("at least one category is required")
	}
	if len(s.docExts) == 0 {
		s.docExts = extSet([]string{"pdf"})
	}

	catalog, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if catalog == nil {
		catalog = Catalog{}
	}
	catalog.Seed(s.categories)
	s.catalog = catalog

	return s, nil
}

func (s *service) Categories() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *service) Search(category Category, query string) []BookRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filterBooks(s.catalog[category], query)
}

func (s *service) SearchAll(query string) Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Catalog, len(s.categories))
	for _, category := range s.categories {
		out[category] = filterBooks(s.catalog[category], query)
	}
	return out
}

func filterBooks(books []BookRecord, query string) []BookRecord {
	query = strings.ToLower(query)
	out := []BookRecord{}
	for _, book := range books {
		if query != "" && !strings.Contains(strings.ToLower(book.FileName), query) {
			continue
		}
		out = append(out, book)
	}
	return out
}

func (s *service) Publish(ctx context.Context, req PublishRequest) (*BookRecord, error) {
	if !req.IsPrivileged {
		return nil, ErrUnauthorized
	}
	if !s.knownCategory(req.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}
	if !allowedExt(req.FileName, s.docExts) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDocumentType, req.FileName)
	}

	// Remote publish runs outside the metadata lock; concurrent uploads may
	// transmit in parallel.
	locator, err := s.publisher.Publish(ctx, req.Category, req.FileName, req.Document)
	if err != nil {
		return nil, err
	}

	record := BookRecord{
		FileName:   req.FileName,
		Locator:    locator,
		UploadedAt: time.Now().UTC(),
	}

	if req.Cover != nil && allowedExt(req.CoverFileName, s.imgExts) {
		coverName := coverFileName(req.FileName, req.CoverFileName)
		if err := s.covers.Save(ctx, req.Category, coverName, req.Cover); err != nil {
			return nil, fmt.Errorf("save cover %s/%s: %w", req.Category, coverName, err)
		}
		record.CoverImageName = coverName
	}

	if err := s.appendAndFlush(ctx, req.Category, record); err != nil {
		return nil, err
	}

	return &record, nil
}

// appendAndFlush installs the record under the single mutual-exclusion
// domain. The in-memory catalog is replaced only after the snapshot was
// persisted, keeping both in lockstep when the flush fails.
func (s *service) appendAndFlush(ctx context.Context, category Category, record BookRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.catalog.Clone()
	next[category] = append(next[category], record)

	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("persist catalog: %w", err)
	}
	s.catalog = next
	return nil
}

func (s *service) Retrieve(ctx context.Context, category Category, fileName string, mode Disposition) (*Download, error) {
	record, err := s.lookup(category, fileName)
	if err != nil {
		return nil, err
	}
	if record.Locator.DirectURL == "" {
		// Should not occur given the publish-before-append invariant, but a
		// hand-edited snapshot can get here.
		return nil, fmt.Errorf("%w: %s/%s", ErrLocatorMissing, category, fileName)
	}

	body, info, err := s.retriever.Open(ctx, record.Locator)
	if err != nil {
		return nil, err
	}

	size := int64(-1)
	if info != nil && info.Size > 0 {
		size = info.Size
	}

	return &Download{
		Body:        body,
		FileName:    record.FileName,
		ContentType: "application/pdf",
		Size:        size,
		Disposition: mode,
	}, nil
}

// lookup finds the first record matching fileName in catalog order. The
// metadata lock is released before any remote I/O happens.
func (s *service) lookup(category Category, fileName string) (*BookRecord, error) {
	if !s.knownCategory(category) {
		return nil, fmt.Errorf("%w: category %q", ErrNotFound, category)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, book := range s.catalog[category] {
		if book.FileName == fileName {
			b := book
			return &b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, category, fileName)
}

func (s *service) OpenCover(ctx context.Context, category Category, fileName string) (*Download, error) {
	if !s.knownCategory(category) {
		return nil, fmt.Errorf("%w: category %q", ErrNotFound, category)
	}

	body, info, err := s.covers.Open(ctx, category, fileName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("open cover %s/%s: %w", category, fileName, err)
	}

	contentType := "application/octet-stream"
	size := int64(-1)
	if info != nil {
		if info.ContentType != "" {
			contentType = info.ContentType
		}
		if info.Size > 0 {
			size = info.Size
		}
	}

	return &Download{
		Body:        body,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		Disposition: DispositionInline,
	}, nil
}

func (s *service) knownCategory(category Category) bool {
	for _, c := range s.categories {
		if c == category {
			return true
		}
	}
	return false
}

func allowedExt(fileName string, allowed map[string]struct{}) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ext == "" {
		return false
	}
	_, ok := allowed[ext]
	return ok
}

// coverFileName derives the stored cover name: the document's base name with
// the cover's extension.
func coverFileName(docName, coverName string) string {
	base := strings.TrimSuffix(docName, path.Ext(docName))
	return base + path.Ext(coverName)
}
