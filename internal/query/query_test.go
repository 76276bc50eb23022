package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-catalog/internal/domain"
	"movie-catalog/internal/store"
)

func newService(t *testing.T, movies ...domain.Movie) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	doc, err := store.NewMemoryDocument(movies...)
	require.NoError(t, err)
	return NewService(store.NewCatalogStore(doc, logger), logger)
}

var catalog = []domain.Movie{
	{ID: 1, Title: "Avatar", Category: "Action"},
	{ID: 2, Title: "Up", Category: "Animation"},
	{ID: 3, Title: "Heat", Category: "Action"},
	{ID: 4, Title: "Rush", Category: "action"},
}

func TestByCategory(t *testing.T) {
	q := newService(t, catalog...)

	tests := []struct {
		name     string
		category string
		wantIDs  []int
	}{
		{name: "multiple matches keep order", category: "Action", wantIDs: []int{1, 3}},
		{name: "case sensitive", category: "action", wantIDs: []int{4}},
		{name: "single match", category: "Animation", wantIDs: []int{2}},
		{name: "no match", category: "Drama", wantIDs: []int{}},
		{name: "empty category", category: "", wantIDs: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movies, err := q.ByCategory(context.Background(), tt.category)
			require.NoError(t, err)
			require.NotNil(t, movies)

			ids := []int{}
			for _, m := range movies {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestByCategory_EmptyCatalog(t *testing.T) {
	movies, err := newService(t).ByCategory(context.Background(), "Action")
	require.NoError(t, err)
	assert.NotNil(t, movies)
	assert.Empty(t, movies)
}

type failingStore struct{ store.MovieStore }

func (failingStore) List(context.Context) ([]domain.Movie, error) {
	return nil, errors.New("disk on fire")
}

func TestByCategory_StoreError(t *testing.T) {
	q := NewService(failingStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := q.ByCategory(context.Background(), "Action")
	assert.Error(t, err)
}

func TestByID(t *testing.T) {
	q := newService(t, catalog...)

	movie, found, err := q.ByID(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Heat", movie.Title)

	_, found, err = q.ByID(context.Background(), 30)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCategoryName(t *testing.T) {
	q := newService(t)
	for _, in := range []string{"", "Action", "  spaced  ", "ñandú"} {
		assert.Equal(t, in, q.CategoryName(in))
	}
}
