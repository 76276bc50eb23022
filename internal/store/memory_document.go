package store

import (
	"context"
	"sync"

	"movie-catalog/internal/domain"
)

// MemoryDocument holds the encoded catalog in process memory. It goes through the
// same codec as the file backend so callers never share slices with the store.
type MemoryDocument struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryDocument seeds the document with movies.
func NewMemoryDocument(movies ...domain.Movie) (*MemoryDocument, error) {
	data, err := EncodeCatalog(movies)
	if err != nil {
		return nil, err
	}
	return &MemoryDocument{data: data}, nil
}

func (d *MemoryDocument) Load(ctx context.Context) ([]domain.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	data := d.data
	d.mu.Unlock()
	return DecodeCatalog(data)
}

func (d *MemoryDocument) Modify(ctx context.Context, fn MutateFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	movies, err := DecodeCatalog(d.data)
	if err != nil {
		return err
	}
	updated, err := fn(movies)
	if err != nil {
		return err
	}
	data, err := EncodeCatalog(updated)
	if err != nil {
		return err
	}
	d.data = data
	return nil
}
