package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
	"github.com/prepstack/bookshelf/pkg/bookshelf/storage/memory"
)

func TestPublishAndOpen(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	loc, err := backend.Publish(ctx, "jee", "sample.pdf", strings.NewReader("book bytes"))
	require.NoError(t, err)
	assert.Equal(t, "memory://jee/sample.pdf", loc.DirectURL)
	assert.Equal(t, 1, backend.Len())

	body, info, err := backend.Open(ctx, loc)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "book bytes", string(data))
	assert.Equal(t, int64(len("book bytes")), info.Size)
}

func TestOpenUnknownLocator(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	_, _, err := backend.Open(ctx, bookshelf.Locator{DirectURL: "memory://jee/missing.pdf"})
	require.Error(t, err)

	var retrieveErr *bookshelf.RetrieveError
	assert.ErrorAs(t, err, &retrieveErr)
	assert.Equal(t, "memory://jee/missing.pdf", retrieveErr.URL)
}
