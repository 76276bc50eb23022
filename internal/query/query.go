// Package query holds the read-only catalog lookups served to the web and gRPC layers.
package query

import (
	"context"
	"log/slog"

	"movie-catalog/internal/domain"
	"movie-catalog/internal/store"
)

// Service filters a fresh catalog snapshot on every call.
type Service struct {
	store  store.MovieStore
	logger *slog.Logger
}

func NewService(s store.MovieStore, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// ByID returns the first movie with id; found is false when there is none.
func (q *Service) ByID(ctx context.Context, id int) (domain.Movie, bool, error) {
	return q.store.FindByID(ctx, id)
}

// ByCategory returns every movie whose category equals category exactly (case-sensitive).
// The result is never nil.
func (q *Service) ByCategory(ctx context.Context, category string) ([]domain.Movie, error) {
	movies, err := q.store.List(ctx)
	if err != nil {
		return nil, err
	}
	matches := FilterByCategory(movies, category)
	q.logger.DebugContext(ctx, "Category filter applied", slog.String("category", category), slog.Int("matches", len(matches)))
	return matches, nil
}

// CategoryName echoes category back unchanged.
func (q *Service) CategoryName(category string) string {
	return category
}

// FilterByCategory keeps the order of movies.
func FilterByCategory(movies []domain.Movie, category string) []domain.Movie {
	matches := make([]domain.Movie, 0, len(movies))
	for _, m := range movies {
		if m.Category == category {
			matches = append(matches, m)
		}
	}
	return matches
}
