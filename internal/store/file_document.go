// internal/store/file_document.go
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"movie-catalog/internal/domain"
)

// FileDocument keeps the catalog in one JSON file. Reads always go to disk; writes
// go to a temp file in the same directory which is then renamed over the canonical path.
type FileDocument struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFileDocument returns a document at path, creating an empty catalog file if none exists.
func NewFileDocument(path string, logger *slog.Logger) (*FileDocument, error) {
	if path == "" {
		return nil, errors.New("catalog document path cannot be empty")
	}
	d := &FileDocument{path: path, logger: logger}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Info("Catalog document not found, creating empty catalog", slog.String("path", path))
		if err := d.replace([]domain.Movie{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat catalog document: %w", err)
	}
	return d, nil
}

// Path is the canonical document location.
func (d *FileDocument) Path() string {
	return d.path
}

func (d *FileDocument) Load(ctx context.Context) ([]domain.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.load()
}

func (d *FileDocument) Modify(ctx context.Context, fn MutateFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	movies, err := d.load()
	if err != nil {
		return err
	}
	updated, err := fn(movies)
	if err != nil {
		return err
	}
	d.logger.DebugContext(ctx, "Replacing catalog document", slog.String("path", d.path), slog.Int("movies", len(updated)))
	return d.replace(updated)
}

func (d *FileDocument) load() ([]domain.Movie, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Movie{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog document: %w", err)
	}
	return DecodeCatalog(data)
}

func (d *FileDocument) replace(movies []domain.Movie) error {
	data, err := EncodeCatalog(movies)
	if err != nil {
		return err
	}

	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tempPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tempPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp catalog: %w", err)
	}
	if err := os.Rename(tempPath, d.path); err != nil {
		return fmt.Errorf("rename temp catalog: %w", err)
	}
	committed = true
	return nil
}
