// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"movie-catalog/internal/domain"
	"movie-catalog/internal/metrics"
	"movie-catalog/internal/query"
	"movie-catalog/internal/store"
	"movie-catalog/pkg/auth"
)

var movieIDRule = fmt.Sprintf("gte=%d,lte=%d", domain.MinLookupID, domain.MaxLookupID)

// MovieHandler holds the dependencies of the HTTP endpoints.
type MovieHandler struct {
	store        store.MovieStore
	query        *query.Service
	logger       *slog.Logger
	validator    *validator.Validate
	tokenManager auth.TokenManager
	admin        *auth.AdminCredentials
	metrics      *metrics.Metrics
}

func NewMovieHandler(s store.MovieStore, q *query.Service, l *slog.Logger, v *validator.Validate, tm auth.TokenManager, admin *auth.AdminCredentials, m *metrics.Metrics) *MovieHandler {
	return &MovieHandler{
		store:        s,
		query:        q,
		logger:       l,
		validator:    v,
		tokenManager: tm,
		admin:        admin,
		metrics:      m,
	}
}

func respondJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.ErrorContext(r.Context(), "Failed to encode JSON response", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
		}
	}
}

func (h *MovieHandler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, r, h.logger, status, data)
}

func (h *MovieHandler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, r, status, map[string]string{"error": message})
}

// decodeMovie reads a movie payload, filling omitted fields with the defaults, and validates it.
func (h *MovieHandler) decodeMovie(w http.ResponseWriter, r *http.Request) (domain.Movie, bool) {
	ctx := r.Context()
	defer r.Body.Close()

	movie := domain.NewMovieTemplate()
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode movie request body", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return domain.Movie{}, false
	}
	if err := h.validator.StructCtx(ctx, movie); err != nil {
		h.logger.WarnContext(ctx, "Movie request validation failed", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return domain.Movie{}, false
	}
	return movie, true
}

func (h *MovieHandler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Movie id must be an integer")
		return 0, false
	}
	return id, true
}

// GetMovies returns the full catalog.
func (h *MovieHandler) GetMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movies, err := h.store.List(ctx)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve movies")
		return
	}
	h.logger.InfoContext(ctx, "Movies list retrieved", slog.Int("count", len(movies)))
	h.respondJSON(w, r, http.StatusOK, movies)
}

// GetMovieByID returns the movie or an empty array when no movie has that id.
func (h *MovieHandler) GetMovieByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.validator.VarCtx(ctx, id, movieIDRule); err != nil {
		h.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("Movie id must be between %d and %d", domain.MinLookupID, domain.MaxLookupID))
		return
	}

	movie, found, err := h.query.ByID(ctx, id)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Error finding movie")
		return
	}
	if !found {
		h.respondJSON(w, r, http.StatusOK, []domain.Movie{})
		return
	}
	h.respondJSON(w, r, http.StatusOK, movie)
}

func (h *MovieHandler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.decodeMovie(w, r)
	if !ok {
		return
	}
	if err := h.store.Create(r.Context(), movie); err != nil {
		h.metrics.CatalogWrites.WithLabelValues("create", "error").Inc()
		h.respondError(w, r, http.StatusInternalServerError, "Failed to create movie")
		return
	}
	h.metrics.CatalogWrites.WithLabelValues("create", "ok").Inc()
	h.respondJSON(w, r, http.StatusOK, domain.MessageResponse{Message: domain.MsgMovieCreated})
}

func (h *MovieHandler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	movie, ok := h.decodeMovie(w, r)
	if !ok {
		return
	}
	err := h.store.UpdateByID(r.Context(), id, movie)
	if !h.writeOutcome(w, r, "update", err) {
		return
	}
	h.respondJSON(w, r, http.StatusOK, domain.MessageResponse{Message: domain.MsgMovieUpdated})
}

func (h *MovieHandler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	err := h.store.DeleteByID(r.Context(), id)
	if !h.writeOutcome(w, r, "delete", err) {
		return
	}
	h.respondJSON(w, r, http.StatusOK, domain.MessageResponse{Message: domain.MsgMovieDeleted})
}

// writeOutcome records a mutation result and answers the error cases. It reports whether err was nil.
func (h *MovieHandler) writeOutcome(w http.ResponseWriter, r *http.Request, op string, err error) bool {
	switch {
	case err == nil:
		h.metrics.CatalogWrites.WithLabelValues(op, "ok").Inc()
		return true
	case errors.Is(err, store.ErrMovieNotFound):
		h.metrics.CatalogWrites.WithLabelValues(op, "not_found").Inc()
		h.respondError(w, r, http.StatusNotFound, "Movie not found")
	default:
		h.metrics.CatalogWrites.WithLabelValues(op, "error").Inc()
		h.respondError(w, r, http.StatusInternalServerError, "Failed to "+op+" movie")
	}
	return false
}

// GetCategoryName echoes the category query parameter.
func (h *MovieHandler) GetCategoryName(w http.ResponseWriter, r *http.Request) {
	values, present := r.URL.Query()["category"]
	if !present || len(values) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "Query parameter 'category' is required")
		return
	}
	h.respondJSON(w, r, http.StatusOK, h.query.CategoryName(values[0]))
}

func (h *MovieHandler) GetMoviesByCategory(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	movies, err := h.query.ByCategory(r.Context(), category)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve movies")
		return
	}
	h.respondJSON(w, r, http.StatusOK, movies)
}

// Login issues a token for the admin identity. The body of a successful response is the bare token string.
func (h *MovieHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer r.Body.Close()

	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode login request body", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if !h.admin.Verify(req.Email, req.Password) {
		h.metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		h.logger.WarnContext(ctx, "Invalid login attempt", slog.String("email", req.Email))
		h.respondError(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokenManager.Generate(req.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to generate JWT token", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Login failed (token generation)")
		return
	}
	h.logger.InfoContext(ctx, "Admin logged in", slog.String("email", req.Email))
	h.respondJSON(w, r, http.StatusOK, token)
}

func (h *MovieHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
