// internal/store/movie_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"movie-catalog/internal/domain"
)

var ErrMovieNotFound = errors.New("movie not found")

// MovieStore is the catalog persistence contract used by the web and gRPC layers.
type MovieStore interface {
	List(ctx context.Context) ([]domain.Movie, error)
	// FindByID reports found=false for an unknown id. The error is reserved for I/O failures.
	FindByID(ctx context.Context, id int) (domain.Movie, bool, error)
	Create(ctx context.Context, movie domain.Movie) error
	UpdateByID(ctx context.Context, id int, movie domain.Movie) error
	DeleteByID(ctx context.Context, id int) error
}

// MutateFunc receives the freshly loaded catalog and returns the catalog to persist.
// Returning an error aborts the cycle and nothing is written.
type MutateFunc func(movies []domain.Movie) ([]domain.Movie, error)

// Document is the single persisted catalog. Modify must run load, fn and replace
// as one exclusive cycle so concurrent mutations cannot lose updates.
type Document interface {
	Load(ctx context.Context) ([]domain.Movie, error)
	Modify(ctx context.Context, fn MutateFunc) error
}

// CatalogStore implements MovieStore on top of any Document. It keeps no copy of
// the catalog between calls.
type CatalogStore struct {
	doc    Document
	logger *slog.Logger
}

func NewCatalogStore(doc Document, logger *slog.Logger) *CatalogStore {
	return &CatalogStore{doc: doc, logger: logger}
}

func (s *CatalogStore) List(ctx context.Context) ([]domain.Movie, error) {
	movies, err := s.doc.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load catalog", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	return movies, nil
}

func (s *CatalogStore) FindByID(ctx context.Context, id int) (domain.Movie, bool, error) {
	movies, err := s.doc.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load catalog", slog.Int("movieID", id), slog.String("error", err.Error()))
		return domain.Movie{}, false, fmt.Errorf("failed to get movie by ID: %w", err)
	}
	if i := indexOf(movies, id); i >= 0 {
		return movies[i], true, nil
	}
	s.logger.DebugContext(ctx, "Movie not found by ID", slog.Int("movieID", id))
	return domain.Movie{}, false, nil
}

// Create appends movie exactly as given, including a caller-chosen id.
func (s *CatalogStore) Create(ctx context.Context, movie domain.Movie) error {
	err := s.doc.Modify(ctx, func(movies []domain.Movie) ([]domain.Movie, error) {
		return append(movies, movie), nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create movie", slog.Int("movieID", movie.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to create movie: %w", err)
	}
	s.logger.InfoContext(ctx, "Movie created", slog.Int("movieID", movie.ID), slog.String("title", movie.Title))
	return nil
}

// UpdateByID overwrites the content fields of the first movie with id. The stored id is kept.
func (s *CatalogStore) UpdateByID(ctx context.Context, id int, movie domain.Movie) error {
	err := s.doc.Modify(ctx, func(movies []domain.Movie) ([]domain.Movie, error) {
		i := indexOf(movies, id)
		if i < 0 {
			return nil, ErrMovieNotFound
		}
		movies[i] = movies[i].WithContent(movie)
		return movies, nil
	})
	if err != nil {
		return s.mutationError(ctx, "update", id, err)
	}
	s.logger.InfoContext(ctx, "Movie updated", slog.Int("movieID", id))
	return nil
}

// DeleteByID removes the first movie with id.
func (s *CatalogStore) DeleteByID(ctx context.Context, id int) error {
	err := s.doc.Modify(ctx, func(movies []domain.Movie) ([]domain.Movie, error) {
		i := indexOf(movies, id)
		if i < 0 {
			return nil, ErrMovieNotFound
		}
		return append(movies[:i], movies[i+1:]...), nil
	})
	if err != nil {
		return s.mutationError(ctx, "delete", id, err)
	}
	s.logger.InfoContext(ctx, "Movie deleted", slog.Int("movieID", id))
	return nil
}

func (s *CatalogStore) mutationError(ctx context.Context, op string, id int, err error) error {
	if errors.Is(err, ErrMovieNotFound) {
		s.logger.WarnContext(ctx, "No movie found to "+op, slog.Int("movieID", id))
		return ErrMovieNotFound
	}
	s.logger.ErrorContext(ctx, "Failed to "+op+" movie", slog.Int("movieID", id), slog.String("error", err.Error()))
	return fmt.Errorf("failed to %s movie: %w", op, err)
}

func indexOf(movies []domain.Movie, id int) int {
	for i := range movies {
		if movies[i].ID == id {
			return i
		}
	}
	return -1
}
