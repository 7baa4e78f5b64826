// Package archive publishes books to the Internet Archive through its
// S3-like REST dialect and streams them back over plain HTTP.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
)

// The archive's error bodies are short XML documents; cap what we carry so a
// misbehaving proxy cannot balloon the error.
const maxErrorBody = 16 << 10

// Config options for the Internet Archive backend
type Config struct {
	AccessKey string // IA-S3 access key
	SecretKey string // IA-S3 secret key

	Endpoint        string // Upload endpoint (default: https://s3.us.archive.org)
	DownloadBaseURL string // Direct-fetch base (default: https://archive.org/download)
	DetailsBaseURL  string // Human details base (default: https://archive.org/details)
	EmbedBaseURL    string // Embeddable viewer base (default: https://archive.org/embed)

	HTTPClient *http.Client // Optional custom client
}

// Backend implements bookshelf.BlobPublisher and bookshelf.BlobRetriever
// against the Internet Archive.
type Backend struct {
	config Config
	client *http.Client
}

// New creates a new Internet Archive backend
func New(config Config) (*Backend, error) {
	if config.AccessKey == "" || config.SecretKey == "" {
		return nil, errors.New("archive access and secret keys are required")
	}
	if config.Endpoint == "" {
		config.Endpoint = "https://s3.us.archive.org"
	}
	if config.DownloadBaseURL == "" {
		config.DownloadBaseURL = "https://archive.org/download"
	}
	if config.DetailsBaseURL == "" {
		config.DetailsBaseURL = "https://archive.org/details"
	}
	if config.EmbedBaseURL == "" {
		config.EmbedBaseURL = "https://archive.org/embed"
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Backend{config: config, client: client}, nil
}

// Publish streams the book to a fresh archive item. The item identifier is
// namespaced by category and carries a timestamp plus a random token so
// concurrent uploads in the same category cannot collide.
func (b *Backend) Publish(ctx context.Context, category bookshelf.Category, fileName string, r io.Reader) (bookshelf.Locator, error) {
	item := fmt.Sprintf("%s_%d_%s", category, time.Now().UTC().Unix(), uuid.NewString()[:8])
	putURL := fmt.Sprintf("%s/%s/%s", b.config.Endpoint, item, url.PathEscape(fileName))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, r)
	if err != nil {
		return bookshelf.Locator{}, &bookshelf.PublishError{Category: category, FileName: fileName, Err: err}
	}
	req.Header.Set("Authorization", fmt.Sprintf("LOW %s:%s", b.config.AccessKey, b.config.SecretKey))
	req.Header.Set("x-archive-auto-make-bucket", "1")

	resp, err := b.client.Do(req)
	if err != nil {
		return bookshelf.Locator{}, &bookshelf.PublishError{Category: category, FileName: fileName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return bookshelf.Locator{}, &bookshelf.PublishError{
			Category:     category,
			FileName:     fileName,
			ProviderBody: string(body),
			Err:          fmt.Errorf("archive upload: unexpected status %s", resp.Status),
		}
	}

	return bookshelf.Locator{
		DirectURL:  fmt.Sprintf("%s/%s/%s", b.config.DownloadBaseURL, item, url.PathEscape(fileName)),
		DetailsURL: fmt.Sprintf("%s/%s", b.config.DetailsBaseURL, item),
		EmbedHTML:  fmt.Sprintf(`<iframe src="%s/%s" width="560" height="384" frameborder="0" allowfullscreen></iframe>`, b.config.EmbedBaseURL, item),
	}, nil
}

// Open streams the book back from its direct link. The response body is
// handed to the caller unread so bytes relay in bounded chunks.
func (b *Backend) Open(ctx context.Context, loc bookshelf.Locator) (io.ReadCloser, *bookshelf.BlobInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.DirectURL, nil)
	if err != nil {
		return nil, nil, &bookshelf.RetrieveError{URL: loc.DirectURL, Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, nil, &bookshelf.RetrieveError{URL: loc.DirectURL, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, &bookshelf.RetrieveError{
			URL: loc.DirectURL,
			Err: fmt.Errorf("archive download: unexpected status %s", resp.Status),
		}
	}

	info := &bookshelf.BlobInfo{
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}
	return resp.Body, info, nil
}
