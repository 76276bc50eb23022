package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-catalog/internal/domain"
	"movie-catalog/internal/metrics"
	"movie-catalog/internal/query"
	"movie-catalog/internal/store"
	"movie-catalog/pkg/auth"
)

const (
	testSecret   = "router-test-secret-key-with-enough-bytes"
	adminEmail   = "admin@gmail.com"
	adminPass    = "admin"
	tokenTimeout = time.Hour
)

type testServer struct {
	router  http.Handler
	tokens  auth.TokenManager
	store   *store.CatalogStore
	metrics *metrics.Metrics
}

func seedCatalog() []domain.Movie {
	return []domain.Movie{
		{ID: 1, Title: "Avatar", Overview: "Blue people on Pandora", Year: 2009, Rating: 7.8, Category: "Action"},
		{ID: 2, Title: "Up", Overview: "A house that flies", Year: 2009, Rating: 8.3, Category: "Animation"},
		{ID: 3, Title: "Heat", Overview: "Cops and robbers in LA", Year: 1995, Rating: 8.3, Category: "Action"},
	}
}

func newTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	doc, err := store.NewMemoryDocument(seedCatalog()...)
	require.NoError(t, err)
	catalog := store.NewCatalogStore(doc, logger)

	tm, err := auth.NewTokenManager(testSecret, "HS256", tokenTimeout)
	require.NoError(t, err)
	admin, err := auth.NewAdminCredentials(adminEmail, adminPass)
	require.NoError(t, err)
	m := metrics.New()

	handler := NewMovieHandler(catalog, query.NewService(catalog, logger), logger, validator.New(), tm, admin, m)
	guard := NewGuard(tm, adminEmail, logger, m)

	return &testServer{
		router:  NewRouter(handler, guard, m, opts),
		tokens:  tm,
		store:   catalog,
		metrics: m,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	token, err := s.tokens.Generate(adminEmail)
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestLoginThenListMovies(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodPost, "/login", domain.LoginRequest{Email: adminEmail, Password: adminPass}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[string](t, rec)
	require.NotEmpty(t, token)

	rec = s.do(t, http.MethodGet, "/movies", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, seedCatalog(), decode[[]domain.Movie](t, rec))
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "wrong password", body: domain.LoginRequest{Email: adminEmail, Password: "nope"}, want: http.StatusUnauthorized},
		{name: "wrong email", body: domain.LoginRequest{Email: "user@gmail.com", Password: adminPass}, want: http.StatusUnauthorized},
		{name: "missing fields", body: map[string]string{"email": adminEmail}, want: http.StatusBadRequest},
		{name: "malformed json", body: "{", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/login", tt.body, "")
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
	assert.Equal(t, float64(2), testutil.ToFloat64(s.metrics.AuthFailures.WithLabelValues("bad_credentials")))
}

func TestListMovies_Guard(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	userToken, err := s.tokens.Generate("user@gmail.com")
	require.NoError(t, err)

	past := time.Now().Add(-3 * time.Hour)
	expiredIssuer, err := auth.NewTokenManager(testSecret, "HS256", time.Minute, auth.WithClock(func() time.Time { return past }))
	require.NoError(t, err)
	expired, err := expiredIssuer.Generate(adminEmail)
	require.NoError(t, err)

	foreignIssuer, err := auth.NewTokenManager("some-other-secret-that-is-long-enough", "HS256", time.Hour)
	require.NoError(t, err)
	foreign, err := foreignIssuer.Generate(adminEmail)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
		reason string
	}{
		{name: "no header", header: "", want: http.StatusUnauthorized, reason: "missing_credential"},
		{name: "basic scheme", header: "Basic YWRtaW46YWRtaW4=", want: http.StatusUnauthorized, reason: "missing_credential"},
		{name: "bearer without token", header: "Bearer", want: http.StatusUnauthorized, reason: "missing_credential"},
		{name: "garbage token", header: "Bearer abc.def.ghi", want: http.StatusUnauthorized, reason: "invalid_token"},
		{name: "foreign signature", header: "Bearer " + foreign, want: http.StatusUnauthorized, reason: "invalid_token"},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized, reason: "expired"},
		{name: "non-admin identity", header: "Bearer " + userToken, want: http.StatusForbidden, reason: "forbidden"},
		{name: "lowercase scheme admin", header: "bearer " + s.adminToken(t), want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/movies", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			}
			if tt.reason != "" {
				assert.GreaterOrEqual(t, testutil.ToFloat64(s.metrics.AuthFailures.WithLabelValues(tt.reason)), float64(1))
			}
		})
	}
}

func TestGetMovieByID(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodGet, "/movies/2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, seedCatalog()[1], decode[domain.Movie](t, rec))

	rec = s.do(t, http.MethodGet, "/movies/1999", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, target := range []string{"/movies/0", "/movies/2001", "/movies/-4", "/movies/abc"} {
		rec = s.do(t, http.MethodGet, target, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestCreateMovie(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	movie := domain.Movie{ID: 10, Title: "Alien", Overview: "In space no one can hear", Year: 1979, Rating: 8.5, Category: "Horror"}

	rec := s.do(t, http.MethodPost, "/movies", movie, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.MsgMovieCreated, decode[domain.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodGet, "/movies/10", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, movie, decode[domain.Movie](t, rec))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.CatalogWrites.WithLabelValues("create", "ok")))
}

func TestCreateMovie_DefaultsForOmittedFields(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodPost, "/movies", `{"id": 11}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	got, found, err := s.store.FindByID(context.Background(), 11)
	require.NoError(t, err)
	require.True(t, found)
	want := domain.NewMovieTemplate()
	want.ID = 11
	assert.Equal(t, want, got)
}

func TestCreateMovie_Validation(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	tests := []struct {
		name string
		body string
	}{
		{name: "title too short", body: `{"id":20,"title":"Up"}`},
		{name: "title too long", body: `{"id":20,"title":"The Lord of the Rings"}`},
		{name: "overview too short", body: `{"id":20,"overview":"meh"}`},
		{name: "year in future", body: `{"id":20,"year":2023}`},
		{name: "rating too low", body: `{"id":20,"rating":0.5}`},
		{name: "rating too high", body: `{"id":20,"rating":10.5}`},
		{name: "wrong type", body: `{"id":"twenty"}`},
		{name: "not json", body: `<movie/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/movies", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	movies, err := s.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, movies, 3)
}

func TestUpdateMovie(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	patch := domain.Movie{ID: 500, Title: "Heat (1995)", Overview: "Pacino and De Niro", Year: 1995, Rating: 9, Category: "Crime"}

	rec := s.do(t, http.MethodPut, "/movies/3", patch, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.MsgMovieUpdated, decode[domain.MessageResponse](t, rec).Message)

	movies, err := s.store.List(context.Background())
	require.NoError(t, err)
	want := seedCatalog()
	want[2] = domain.Movie{ID: 3, Title: "Heat (1995)", Overview: "Pacino and De Niro", Year: 1995, Rating: 9, Category: "Crime"}
	assert.Equal(t, want, movies)
}

func TestUpdateMovie_NotFound(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodPut, "/movies/404", domain.Movie{Title: "Nothing here", Overview: "Nothing", Year: 2000, Rating: 5}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	movies, err := s.store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seedCatalog(), movies)
}

func TestDeleteMovie(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodDelete, "/movies/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.MsgMovieDeleted, decode[domain.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodDelete, "/movies/1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	movies, err := s.store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seedCatalog()[1:], movies)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.CatalogWrites.WithLabelValues("delete", "not_found")))
}

func TestCategoryRoutes(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodGet, "/movies-category/?category=Drama", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Drama", decode[string](t, rec))

	rec = s.do(t, http.MethodGet, "/movies-category/?category=", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", decode[string](t, rec))

	rec = s.do(t, http.MethodGet, "/movies-category/", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/movies-category/Action", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	movies := decode[[]domain.Movie](t, rec)
	require.Len(t, movies, 2)
	assert.Equal(t, 1, movies[0].ID)
	assert.Equal(t, 3, movies[1].ID)

	rec = s.do(t, http.MethodGet, "/movies-category/action", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGuardWrites(t *testing.T) {
	open := newTestServer(t, RouterOptions{})
	movie := domain.Movie{ID: 30, Title: "Rocky", Overview: "A boxer from Philly", Year: 1976, Rating: 8.1, Category: "Sport"}
	assert.Equal(t, http.StatusOK, open.do(t, http.MethodPost, "/movies", movie, "").Code)

	guarded := newTestServer(t, RouterOptions{GuardWrites: true})
	assert.Equal(t, http.StatusUnauthorized, guarded.do(t, http.MethodPost, "/movies", movie, "").Code)
	assert.Equal(t, http.StatusUnauthorized, guarded.do(t, http.MethodPut, "/movies/1", movie, "").Code)
	assert.Equal(t, http.StatusUnauthorized, guarded.do(t, http.MethodDelete, "/movies/1", nil, "").Code)

	token := guarded.adminToken(t)
	assert.Equal(t, http.StatusOK, guarded.do(t, http.MethodPost, "/movies", movie, token).Code)
	assert.Equal(t, http.StatusOK, guarded.do(t, http.MethodDelete, "/movies/30", nil, token).Code)

	assert.Equal(t, http.StatusOK, guarded.do(t, http.MethodGet, "/movies/1", nil, "").Code)
}

func TestRequestIDAndMetrics(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/movies/1", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.RequestsTotal.WithLabelValues("/movies/{id}", http.MethodGet, "200")))

	rec = s.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `moviecatalog_http_requests_total{code="200",method="GET",route="/healthz"} 1`)
}
