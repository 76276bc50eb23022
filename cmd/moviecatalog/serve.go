// cmd/moviecatalog/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	httpAPI "movie-catalog/internal/api"
	"movie-catalog/internal/config"
	grpcServer "movie-catalog/internal/grpc"
	"movie-catalog/internal/metrics"
	"movie-catalog/internal/query"
	"movie-catalog/internal/store"
	"movie-catalog/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

// openDocument builds the catalog backend selected by cfg. The returned closer releases
// any connection the backend holds. Connection pool stats of the Postgres backend are
// registered on m.
func openDocument(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (store.Document, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Catalog.Backend {
	case config.BackendMemory:
		doc, err := store.NewMemoryDocument()
		return doc, noop, err

	case config.BackendPostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		doc, err := store.NewPostgresDocument(db, cfg.Catalog.Document, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := m.Registry().Register(collectors.NewDBStatsCollector(db.DB, cfg.Catalog.Document)); err != nil {
			logger.Warn("Failed to register database stats collector", slog.String("error", err.Error()))
		}
		if cfg.Postgres.CreateSchema {
			if err := doc.EnsureSchema(ctx); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		logger.Info("Catalog stored in PostgreSQL", slog.String("document", cfg.Catalog.Document))
		return doc, db.Close, nil

	default:
		doc, err := store.NewFileDocument(cfg.Catalog.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Catalog stored in file", slog.String("path", doc.Path()))
		return doc, noop, nil
	}
}

func serve(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.UsesDevSecret() {
		logger.Warn("Using the built-in development signing secret; set MOVIES_AUTH_SECRET in any shared environment")
	}

	m := metrics.New()
	doc, closeDoc, err := openDocument(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDoc(); err != nil {
			logger.Error("Failed to close catalog backend", slog.String("error", err.Error()))
		}
	}()

	tm, err := newTokenManager(cfg)
	if err != nil {
		return err
	}
	admin, err := auth.NewAdminCredentials(cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return err
	}

	catalog := store.NewCatalogStore(doc, logger)
	queries := query.NewService(catalog, logger)

	handler := httpAPI.NewMovieHandler(catalog, queries, logger, validator.New(), tm, admin, m)
	guard := httpAPI.NewGuard(tm, admin.Email(), logger, m)
	router := httpAPI.NewRouter(handler, guard, m, httpAPI.RouterOptions{GuardWrites: cfg.Auth.GuardWrites})

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 2)

	var grpcSrv *grpc.Server
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC on port %s: %w", cfg.GRPC.Port, err)
		}
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(grpcServer.LoggingInterceptor(logger)))
		if err := grpcServer.Register(grpcSrv, grpcServer.NewServer(queries, logger)); err != nil {
			lis.Close()
			return err
		}
		reflection.Register(grpcSrv)

		go func() {
			logger.Info("gRPC query server starting", slog.String("port", cfg.GRPC.Port))
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("HTTP server starting", slog.String("port", cfg.HTTP.Port), slog.Bool("guard_writes", cfg.Auth.GuardWrites))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down...")
	case runErr = <-errCh:
		logger.Error("Server failed", slog.String("error", runErr.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
		logger.Info("gRPC server gracefully stopped.")
	}
	return runErr
}
