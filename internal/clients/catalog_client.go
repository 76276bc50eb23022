// internal/clients/catalog_client.go
package clients

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"movie-catalog/internal/domain"
	catalogrpc "movie-catalog/internal/grpc"
)

const callTimeout = 3 * time.Second

// CatalogQueryClient reads the catalog over the gRPC query service.
type CatalogQueryClient struct {
	conn   *grpc.ClientConn
	logger *slog.Logger
}

// NewCatalogQueryClient connects to addr. Transport credentials default to insecure
// and can be overridden through opts.
func NewCatalogQueryClient(addr string, logger *slog.Logger, opts ...grpc.DialOption) (*CatalogQueryClient, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog query client for %s: %w", addr, err)
	}
	return &CatalogQueryClient{conn: conn, logger: logger}, nil
}

// GetMovie returns the movie with id. found is false when the server answers NotFound.
func (c *CatalogQueryClient) GetMovie(ctx context.Context, id int) (movie domain.Movie, found bool, err error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out := new(structpb.Struct)
	err = c.conn.Invoke(callCtx, catalogrpc.GetMovieMethod, wrapperspb.Int64(int64(id)), out)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.Movie{}, false, nil
		}
		c.logFailure(ctx, "GetMovie", err)
		return domain.Movie{}, false, fmt.Errorf("grpc GetMovie failed for id %d: %w", id, err)
	}
	return catalogrpc.StructToMovie(out), true, nil
}

func (c *CatalogQueryClient) ListByCategory(ctx context.Context, category string) ([]domain.Movie, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out := new(structpb.ListValue)
	if err := c.conn.Invoke(callCtx, catalogrpc.ListByCategoryMethod, wrapperspb.String(category), out); err != nil {
		c.logFailure(ctx, "ListByCategory", err)
		return nil, fmt.Errorf("grpc ListByCategory failed for category %q: %w", category, err)
	}

	movies := make([]domain.Movie, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		movies = append(movies, catalogrpc.StructToMovie(v.GetStructValue()))
	}
	return movies, nil
}

func (c *CatalogQueryClient) logFailure(ctx context.Context, method string, err error) {
	st, _ := status.FromError(err)
	c.logger.ErrorContext(ctx, "CatalogQuery gRPC call failed",
		slog.String("method", method),
		slog.String("code", st.Code().String()),
		slog.String("message", st.Message()))
}

func (c *CatalogQueryClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
