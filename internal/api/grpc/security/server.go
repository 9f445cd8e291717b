package security

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/home-security/internal/codec"
	domain "github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/logger"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Config(ctx context.Context) (domain.Config, error)
	SaveConfig(ctx context.Context, cfg domain.Config) (domain.Config, error)
	PerformCheck(ctx context.Context, image []byte) error
	AnnotatedImage(ctx context.Context) ([]byte, error)
	Arm(ctx context.Context) (domain.Config, error)
	Silence(ctx context.Context) (domain.Config, error)
	Disarm(ctx context.Context) (domain.Config, error)
}

// Server implements the SecurityService gRPC API.
type Server struct {
	// service provides the business logic for alarm operations.
	service Service
}

var _ SecurityServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetConfig returns the stored config.
func (s *Server) GetConfig(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	cfg, err := s.service.Config(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return codec.ToStruct(cfg), nil
}

// UpdateConfig replaces the stored config and returns the persisted value.
func (s *Server) UpdateConfig(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "config is required")
	}

	cfg, err := codec.FromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	saved, err := s.service.SaveConfig(ctx, cfg)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return codec.ToStruct(saved), nil
}

// Check runs person detection on the image. The verdict is not returned.
func (s *Server) Check(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image is required")
	}

	if err := s.service.PerformCheck(ctx, req.GetValue()); err != nil {
		return nil, toStatus(ctx, err)
	}

	return new(emptypb.Empty), nil
}

// GetAnnotatedImage returns the image annotated by the last successful detection.
func (s *Server) GetAnnotatedImage(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	data, err := s.service.AnnotatedImage(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return wrapperspb.Bytes(data), nil
}

// Arm activates monitoring.
func (s *Server) Arm(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.transition(ctx, s.service.Arm)
}

// Silence acknowledges a breach.
func (s *Server) Silence(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.transition(ctx, s.service.Silence)
}

// Disarm deactivates monitoring.
func (s *Server) Disarm(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.transition(ctx, s.service.Disarm)
}

func (s *Server) transition(
	ctx context.Context,
	operation func(context.Context) (domain.Config, error),
) (*structpb.Struct, error) {
	cfg, err := operation(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return codec.ToStruct(cfg), nil
}

// toStatus maps a classified domain error to a gRPC status carrying its detail.
func toStatus(ctx context.Context, err error) error {
	code := CodeOf(err)

	if code == codes.Internal {
		logger.ErrorKV(ctx, "Request failed", "kind", domain.KindOf(err).String(), "error", err)
	}

	return status.Error(code, err.Error())
}

// CodeOf returns the gRPC code for a domain error.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}

	switch domain.KindOf(err) {
	case domain.KindInvalidTransition:
		return codes.FailedPrecondition
	case domain.KindInvalidConfig:
		return codes.InvalidArgument
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindUnknown:
		switch {
		case errors.Is(err, context.Canceled):
			return codes.Canceled
		case errors.Is(err, context.DeadlineExceeded):
			return codes.DeadlineExceeded
		}
	}

	return codes.Internal
}
