package bookshelf

import "time"

// Category is a fixed top-level grouping of books. The set of known
// categories is closed and supplied at startup; it is never user-creatable.
type Category string

// Locator identifies where a published book's bytes live in the remote
// store. DirectURL is the only mandatory field; the rest are provider
// enrichments and callers must not depend on them.
type Locator struct {
	DirectURL  string `json:"direct_url"`
	DetailsURL string `json:"details_url,omitempty"`
	EmbedHTML  string `json:"embed_html,omitempty"`
}

// BookRecord is the unit of the catalog. A record is appended only after the
// remote publish succeeded, so Locator.DirectURL is expected to resolve.
type BookRecord struct {
	FileName       string    `json:"file"`
	Locator        Locator   `json:"locator"`
	CoverImageName string    `json:"image,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// Catalog maps each category to its books in upload order. Upload order is
// the default listing order.
type Catalog map[Category][]BookRecord

// Clone returns a copy of the catalog whose slices are safe to append to
// without affecting the receiver.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for cat, books := range c {
		cp := make([]BookRecord, len(books))
		copy(cp, books)
		out[cat] = cp
	}
	return out
}

// Seed ensures every known category has an entry, so an empty persisted
// state still lists all categories.
func (c Catalog) Seed(categories []Category) {
	for _, cat := range categories {
		if _, ok := c[cat]; !ok {
			c[cat] = []BookRecord{}
		}
	}
}

// Disposition selects how a proxied book stream is presented to the client.
type Disposition string

const (
	DispositionInline     Disposition = "inline"
	DispositionAttachment Disposition = "attachment"
)
