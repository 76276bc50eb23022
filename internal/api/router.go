// internal/api/router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"movie-catalog/internal/metrics"
)

// RouterOptions selects which routes sit behind the access guard.
type RouterOptions struct {
	// GuardWrites puts POST, PUT and DELETE /movies behind the guard as well as GET /movies.
	GuardWrites bool
}

func NewRouter(handler *MovieHandler, guard *Guard, m *metrics.Metrics, opts RouterOptions) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware, MetricsMiddleware(m))

	writes := func(h http.HandlerFunc) http.Handler {
		if opts.GuardWrites {
			return guard.Middleware(h)
		}
		return h
	}

	router.Handle("/movies", guard.Middleware(http.HandlerFunc(handler.GetMovies))).Methods(http.MethodGet)
	router.Handle("/movies", writes(handler.CreateMovie)).Methods(http.MethodPost)
	router.HandleFunc("/movies/{id}", handler.GetMovieByID).Methods(http.MethodGet)
	router.Handle("/movies/{id}", writes(handler.UpdateMovie)).Methods(http.MethodPut)
	router.Handle("/movies/{id}", writes(handler.DeleteMovie)).Methods(http.MethodDelete)

	router.HandleFunc("/movies-category/", handler.GetCategoryName).Methods(http.MethodGet)
	router.HandleFunc("/movies-category/{category}", handler.GetMoviesByCategory).Methods(http.MethodGet)

	router.HandleFunc("/login", handler.Login).Methods(http.MethodPost)

	router.HandleFunc("/healthz", handler.Health).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	return router
}
