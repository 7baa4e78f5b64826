// Package cover stores book cover images on the local filesystem, one
// directory per category.
package cover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
)

// Config options for the cover store
type Config struct {
	BaseDir string // Base directory for cover files
}

// Store implements bookshelf.CoverStore on a local directory tree.
type Store struct {
	baseDir string
}

// New creates a new cover store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Store{baseDir: config.BaseDir}, nil
}

// Save writes the cover under <base>/<category>/<fileName>.
func (s *Store) Save(ctx context.Context, category bookshelf.Category, fileName string, r io.Reader) error {
	path, err := s.coverPath(category, fileName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create category directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cover file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("failed to write cover file: %w", err)
	}
	return nil
}

// Open streams a stored cover. A missing file maps to bookshelf.ErrNotFound.
func (s *Store) Open(ctx context.Context, category bookshelf.Category, fileName string) (io.ReadCloser, *bookshelf.BlobInfo, error) {
	path, err := s.coverPath(category, fileName)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: cover %s/%s", bookshelf.ErrNotFound, category, fileName)
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to open cover file: %w", err)
	}

	info := &bookshelf.BlobInfo{Size: -1}
	if stat, err := file.Stat(); err == nil {
		info.Size = stat.Size()
	}

	// Sniff the content type from the leading bytes, then rewind.
	buffer := make([]byte, 512)
	n, _ := file.Read(buffer)
	info.ContentType = http.DetectContentType(buffer[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to rewind cover file: %w", err)
	}

	return file, info, nil
}

// coverPath resolves the on-disk location and rejects names that would
// escape the category directory.
func (s *Store) coverPath(category bookshelf.Category, fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return "", fmt.Errorf("invalid cover file name %q", fileName)
	}
	if string(category) != filepath.Base(string(category)) {
		return "", fmt.Errorf("invalid category %q", category)
	}
	return filepath.Join(s.baseDir, string(category), fileName), nil
}
