// internal/grpc/server.go
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"movie-catalog/internal/domain"
	"movie-catalog/internal/query"
)

const (
	ServiceName          = "moviecatalog.v1.CatalogQuery"
	GetMovieMethod       = "/" + ServiceName + "/GetMovie"
	ListByCategoryMethod = "/" + ServiceName + "/ListByCategory"
)

// CatalogQueryServer is the read-only catalog service. Movies travel as
// google.protobuf.Struct values keyed by their JSON field names.
type CatalogQueryServer interface {
	GetMovie(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListByCategory(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

var CatalogQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetMovie", Handler: getMovieHandler},
		{MethodName: "ListByCategory", Handler: listByCategoryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: descriptorFile,
}

func getMovieHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogQueryServer).GetMovie(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetMovieMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogQueryServer).GetMovie(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func listByCategoryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogQueryServer).ListByCategory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListByCategoryMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogQueryServer).ListByCategory(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Register attaches srv to s and publishes the service descriptor used by reflection.
func Register(s *grpc.Server, srv CatalogQueryServer) error {
	if _, err := registerFileDescriptor(); err != nil {
		return err
	}
	s.RegisterService(&CatalogQueryServiceDesc, srv)
	return nil
}

// Server serves catalog lookups from the query service.
type Server struct {
	query  *query.Service
	logger *slog.Logger
}

func NewServer(q *query.Service, logger *slog.Logger) *Server {
	return &Server{query: q, logger: logger}
}

// GetMovie returns the movie with the requested id or NotFound.
func (s *Server) GetMovie(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	id := req.GetValue()
	s.logger.InfoContext(ctx, "gRPC GetMovie called", slog.Int64("movie_id", id))

	if id < domain.MinLookupID || id > domain.MaxLookupID {
		return nil, status.Errorf(codes.InvalidArgument, "movie id must be between %d and %d", domain.MinLookupID, domain.MaxLookupID)
	}

	movie, found, err := s.query.ByID(ctx, int(id))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to look up movie for gRPC GetMovie", slog.Int64("movie_id", id), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to retrieve movie: %v", err)
	}
	if !found {
		return nil, status.Errorf(codes.NotFound, "movie not found with ID %d", id)
	}

	out, err := MovieToStruct(movie)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode movie: %v", err)
	}
	return out, nil
}

// ListByCategory returns the movies whose category matches exactly, in catalog order.
func (s *Server) ListByCategory(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	category := req.GetValue()
	s.logger.InfoContext(ctx, "gRPC ListByCategory called", slog.String("category", category))

	movies, err := s.query.ByCategory(ctx, category)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to filter movies for gRPC ListByCategory", slog.String("category", category), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to retrieve movies: %v", err)
	}

	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(movies))}
	for _, m := range movies {
		st, err := MovieToStruct(m)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to encode movie: %v", err)
		}
		list.Values = append(list.Values, structpb.NewStructValue(st))
	}
	return list, nil
}

// LoggingInterceptor logs each unary call with its status code and duration.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.InfoContext(ctx, "gRPC call finished",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)))
		return resp, err
	}
}

func MovieToStruct(m domain.Movie) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"id":       m.ID,
		"title":    m.Title,
		"overview": m.Overview,
		"year":     m.Year,
		"rating":   m.Rating,
		"category": m.Category,
	})
}

func StructToMovie(s *structpb.Struct) domain.Movie {
	f := s.GetFields()
	return domain.Movie{
		ID:       int(f["id"].GetNumberValue()),
		Title:    f["title"].GetStringValue(),
		Overview: f["overview"].GetStringValue(),
		Year:     int(f["year"].GetNumberValue()),
		Rating:   f["rating"].GetNumberValue(),
		Category: f["category"].GetStringValue(),
	}
}
