// internal/store/postgres_document.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"movie-catalog/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrSchemaMissing is returned when the catalog_documents table does not exist.
var ErrSchemaMissing = errors.New("catalog_documents table is missing")

const (
	pgUndefinedTable = "42P01"

	schemaQuery = `CREATE TABLE IF NOT EXISTS catalog_documents (
		name       TEXT PRIMARY KEY,
		body       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	loadQuery       = `SELECT body FROM catalog_documents WHERE name = $1`
	loadLockedQuery = `SELECT body FROM catalog_documents WHERE name = $1 FOR UPDATE`
	replaceQuery    = `INSERT INTO catalog_documents (name, body, updated_at) VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`
)

// PostgresDocument stores the whole catalog as one JSONB row. Each Modify runs in a
// transaction holding the row lock, so the replace is atomic for every reader.
type PostgresDocument struct {
	db     *sqlx.DB
	name   string
	logger *slog.Logger
}

func NewPostgresDocument(db *sqlx.DB, name string, logger *slog.Logger) (*PostgresDocument, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil")
	}
	if name == "" {
		return nil, errors.New("catalog document name cannot be empty")
	}
	return &PostgresDocument{db: db, name: name, logger: logger}, nil
}

// EnsureSchema creates the catalog_documents table when it is absent.
func (d *PostgresDocument) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schemaQuery); err != nil {
		d.logger.ErrorContext(ctx, "Failed to ensure catalog schema", slog.String("error", err.Error()))
		return fmt.Errorf("failed to ensure catalog schema: %w", err)
	}
	return nil
}

func (d *PostgresDocument) Load(ctx context.Context) ([]domain.Movie, error) {
	var body []byte
	d.logger.DebugContext(ctx, "Executing catalog load query", slog.String("document", d.name))
	if err := d.db.GetContext(ctx, &body, loadQuery, d.name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.Movie{}, nil
		}
		return nil, d.classify(ctx, "load", err)
	}
	return DecodeCatalog(body)
}

func (d *PostgresDocument) Modify(ctx context.Context, fn MutateFunc) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin catalog transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			d.logger.WarnContext(ctx, "Failed to roll back catalog transaction", slog.String("error", err.Error()))
		}
	}()

	var body []byte
	movies := []domain.Movie{}
	err = tx.GetContext(ctx, &body, loadLockedQuery, d.name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return d.classify(ctx, "lock", err)
	default:
		if movies, err = DecodeCatalog(body); err != nil {
			return err
		}
	}

	updated, err := fn(movies)
	if err != nil {
		return err
	}
	data, err := EncodeCatalog(updated)
	if err != nil {
		return err
	}

	d.logger.DebugContext(ctx, "Executing catalog replace query", slog.String("document", d.name), slog.Int("movies", len(updated)))
	if _, err := tx.ExecContext(ctx, replaceQuery, d.name, string(data), time.Now().UTC()); err != nil {
		return d.classify(ctx, "replace", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog transaction: %w", err)
	}
	return nil
}

func (d *PostgresDocument) classify(ctx context.Context, op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUndefinedTable {
		d.logger.ErrorContext(ctx, "Catalog table missing", slog.String("op", op), slog.String("pg_error_code", string(pqErr.Code)))
		return fmt.Errorf("%s catalog: %w", op, ErrSchemaMissing)
	}
	d.logger.ErrorContext(ctx, "Catalog query failed", slog.String("op", op), slog.String("error", err.Error()))
	return fmt.Errorf("failed to %s catalog: %w", op, err)
}
