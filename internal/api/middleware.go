// internal/api/middleware.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"movie-catalog/internal/logging"
	"movie-catalog/internal/metrics"
	"movie-catalog/pkg/auth"
)

// ContextKey is used for request-scoped values set by middleware.
type ContextKey string

// EmailKey holds the email claim of an authorized request.
const EmailKey ContextKey = "email"

const requestIDHeader = "X-Request-ID"

var (
	ErrMissingCredential = errors.New("missing or malformed bearer credential")
	ErrForbidden         = errors.New("identity is not allowed")
)

// Guard authorizes requests carrying a bearer token issued to the allowed identity.
type Guard struct {
	tokens       auth.TokenManager
	allowedEmail string
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func NewGuard(tm auth.TokenManager, allowedEmail string, logger *slog.Logger, m *metrics.Metrics) *Guard {
	return &Guard{tokens: tm, allowedEmail: allowedEmail, logger: logger, metrics: m}
}

// Authorize extracts the bearer token from r, validates it and checks the email claim.
// Errors are ErrMissingCredential, auth.ErrInvalidToken, auth.ErrExpiredToken or ErrForbidden.
func (g *Guard) Authorize(r *http.Request) (*auth.Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrMissingCredential
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, ErrMissingCredential
	}

	claims, err := g.tokens.Validate(parts[1])
	if err != nil {
		return nil, err
	}
	if claims.Email != g.allowedEmail {
		return claims, ErrForbidden
	}
	return claims, nil
}

// Middleware rejects unauthorized requests with 401 (missing, invalid, expired) or 403 (forbidden).
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		claims, err := g.Authorize(r)
		if err != nil {
			status, reason, message := classifyAuthError(err)
			g.metrics.AuthFailures.WithLabelValues(reason).Inc()
			g.logger.WarnContext(ctx, "Request rejected by access guard", slog.String("reason", reason), slog.String("path", r.URL.Path), slog.String("error", err.Error()))
			if status == http.StatusUnauthorized {
				w.Header().Set("WWW-Authenticate", `Bearer realm="movies"`)
			}
			respondJSON(w, r, g.logger, status, map[string]string{"error": message})
			return
		}

		ctx = context.WithValue(ctx, EmailKey, claims.Email)
		g.logger.DebugContext(ctx, "Token validated successfully", slog.String("email", claims.Email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func classifyAuthError(err error) (status int, reason, message string) {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return http.StatusUnauthorized, "missing_credential", "Authorization header with Bearer token required"
	case errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "expired", "Token has expired"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden", "invalid credentials"
	default:
		return http.StatusUnauthorized, "invalid_token", "Invalid token"
	}
}

// RequestIDMiddleware propagates or assigns an X-Request-ID and tags the request context with it.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records request count and latency per matched route template.
func MetricsMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r)

			m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		})
	}
}
