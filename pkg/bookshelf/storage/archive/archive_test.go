package archive_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
	"github.com/prepstack/bookshelf/pkg/bookshelf/storage/archive"
)

func newBackend(t *testing.T, uploadURL, downloadURL string) *archive.Backend {
	t.Helper()
	backend, err := archive.New(archive.Config{
		AccessKey:       "ak",
		SecretKey:       "sk",
		Endpoint:        uploadURL,
		DownloadBaseURL: downloadURL,
	})
	require.NoError(t, err)
	return backend
}

func TestNewRequiresKeys(t *testing.T) {
	_, err := archive.New(archive.Config{})
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("streams the body with archive auth headers", func(t *testing.T) {
		var gotPath, gotAuth, gotBucketHeader, gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			gotBucketHeader = r.Header.Get("x-archive-auto-make-bucket")
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		backend := newBackend(t, srv.URL, "https://archive.example/download")
		loc, err := backend.Publish(ctx, "jee", "sample book.pdf", strings.NewReader("pdf bytes"))
		require.NoError(t, err)

		assert.Equal(t, "LOW ak:sk", gotAuth)
		assert.Equal(t, "1", gotBucketHeader)
		assert.Equal(t, "pdf bytes", gotBody)
		assert.True(t, strings.HasPrefix(gotPath, "/jee_"), "item must be namespaced by category, got %s", gotPath)
		assert.True(t, strings.HasSuffix(gotPath, "/sample%20book.pdf"))

		assert.True(t, strings.HasPrefix(loc.DirectURL, "https://archive.example/download/jee_"))
		assert.True(t, strings.HasSuffix(loc.DirectURL, "/sample%20book.pdf"))
		assert.NotEmpty(t, loc.DetailsURL)
		assert.Contains(t, loc.EmbedHTML, "<iframe")
	})

	t.Run("distinct items for repeated uploads of the same name", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		backend := newBackend(t, srv.URL, "https://archive.example/download")
		first, err := backend.Publish(ctx, "jee", "same.pdf", strings.NewReader("a"))
		require.NoError(t, err)
		second, err := backend.Publish(ctx, "jee", "same.pdf", strings.NewReader("b"))
		require.NoError(t, err)

		assert.NotEqual(t, first.DirectURL, second.DirectURL)
	})

	t.Run("non-success response carries the provider body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, "<Error><Code>SignatureDoesNotMatch</Code></Error>")
		}))
		defer srv.Close()

		backend := newBackend(t, srv.URL, "https://archive.example/download")
		_, err := backend.Publish(ctx, "jee", "sample.pdf", strings.NewReader("pdf bytes"))
		require.Error(t, err)

		var publishErr *bookshelf.PublishError
		require.ErrorAs(t, err, &publishErr)
		assert.Contains(t, publishErr.ProviderBody, "SignatureDoesNotMatch")
		assert.Equal(t, bookshelf.Category("jee"), publishErr.Category)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("relays the remote stream and info", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			io.WriteString(w, "pdf bytes")
		}))
		defer srv.Close()

		backend := newBackend(t, "https://s3.example", srv.URL)
		body, info, err := backend.Open(ctx, bookshelf.Locator{DirectURL: srv.URL + "/item/sample.pdf"})
		require.NoError(t, err)
		defer body.Close()

		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "pdf bytes", string(data))
		assert.Equal(t, "application/pdf", info.ContentType)
		assert.Equal(t, int64(len("pdf bytes")), info.Size)
	})

	t.Run("non-success response is a RetrieveError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		backend := newBackend(t, "https://s3.example", srv.URL)
		_, _, err := backend.Open(ctx, bookshelf.Locator{DirectURL: srv.URL + "/item/gone.pdf"})
		require.Error(t, err)

		var retrieveErr *bookshelf.RetrieveError
		assert.ErrorAs(t, err, &retrieveErr)
	})
}
