package cover_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
	"github.com/prepstack/bookshelf/pkg/bookshelf/cover"
)

func newStore(t *testing.T) *cover.Store {
	t.Helper()
	store, err := cover.New(cover.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := cover.New(cover.Config{})
	assert.Error(t, err)
}

func TestSaveAndOpen(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// Real PNG magic so the sniffed content type is meaningful.
	pngBytes := "\x89PNG\r\n\x1a\n" + strings.Repeat("x", 100)
	require.NoError(t, store.Save(ctx, "jee", "algebra.png", strings.NewReader(pngBytes)))

	body, info, err := store.Open(ctx, "jee", "algebra.png")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, string(data))
	assert.Equal(t, int64(len(pngBytes)), info.Size)
	assert.Equal(t, "image/png", info.ContentType)
}

func TestOpenMissingCover(t *testing.T) {
	store := newStore(t)

	_, _, err := store.Open(context.Background(), "jee", "missing.png")
	assert.True(t, errors.Is(err, bookshelf.ErrNotFound))
}

func TestRejectsPathTraversal(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.Save(ctx, "jee", "../escape.png", strings.NewReader("x"))
	assert.Error(t, err)

	_, _, err = store.Open(ctx, "jee", "..")
	assert.Error(t, err)

	_, _, err = store.Open(ctx, "../jee", "cover.png")
	assert.Error(t, err)
}
