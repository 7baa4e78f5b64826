package bookshelf

import "io"

// PublishRequest contains parameters for publishing a book.
type PublishRequest struct {
	Category Category
	FileName string
	Document io.Reader

	// Cover is optional; nil means no cover was supplied. A cover whose
	// extension is outside the image allow-list is dropped without failing
	// the publish.
	CoverFileName string
	Cover         io.Reader

	// IsPrivileged is the admin gate's verdict for this caller.
	IsPrivileged bool
}

// Download is a streamed response from the retrieve and cover paths. The
// caller owns Body and must close it on all exit paths.
type Download struct {
	Body        io.ReadCloser
	FileName    string
	ContentType string
	Size        int64
	Disposition Disposition
}
