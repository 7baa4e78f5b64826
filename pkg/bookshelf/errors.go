package bookshelf

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrUnauthorized indicates the caller is not a privileged session
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCategory indicates an unknown category
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidDocumentType indicates the document extension is not allowed
	ErrInvalidDocumentType = errors.New("invalid document type")

	// ErrNotFound indicates no matching category, record or file
	ErrNotFound = errors.New("not found")

	// ErrLocatorMissing indicates a record exists without a usable direct link
	ErrLocatorMissing = errors.New("record has no direct link")
)

// PublishError represents a failed publish against the remote store.
// ProviderBody carries the provider's raw error text for diagnosis.
type PublishError struct {
	Category     Category
	FileName     string
	ProviderBody string
	Err          error
}

func (e *PublishError) Error() string {
	if e.ProviderBody != "" {
		return fmt.Sprintf("publish %s/%s failed: %v: %s", e.Category, e.FileName, e.Err, e.ProviderBody)
	}
	return fmt.Sprintf("publish %s/%s failed: %v", e.Category, e.FileName, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// RetrieveError represents a failed read against the remote store. It is
// distinct from ErrNotFound: the catalog had a record, the store did not
// deliver it.
type RetrieveError struct {
	URL string
	Err error
}

func (e *RetrieveError) Error() string {
	return fmt.Sprintf("retrieve %s failed: %v", e.URL, e.Err)
}

func (e *RetrieveError) Unwrap() error {
	return e.Err
}
