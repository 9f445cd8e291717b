package security

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/home-security/internal/codec"
	domain "github.com/oshokin/home-security/internal/domain/security"
)

var errTestDisk = errors.New("disk failure")

// fakeService implements the Service interface for unit testing the transport.
type fakeService struct {
	// cfg is returned by every config operation.
	cfg domain.Config
	// err is returned by every operation when set.
	err error
	// saved is the last config passed to SaveConfig.
	saved *domain.Config
	// image is the last image passed to PerformCheck.
	image []byte
}

func (f *fakeService) Config(context.Context) (domain.Config, error) { return f.cfg, f.err }

func (f *fakeService) SaveConfig(_ context.Context, cfg domain.Config) (domain.Config, error) {
	f.saved = &cfg

	return cfg, f.err
}

func (f *fakeService) PerformCheck(_ context.Context, image []byte) error {
	f.image = image

	return f.err
}

func (f *fakeService) AnnotatedImage(context.Context) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}

	return []byte("annotated"), nil
}

func (f *fakeService) Arm(context.Context) (domain.Config, error)     { return f.cfg, f.err }
func (f *fakeService) Silence(context.Context) (domain.Config, error) { return f.cfg, f.err }
func (f *fakeService) Disarm(context.Context) (domain.Config, error)  { return f.cfg, f.err }

// TestServer_UpdateConfig_Validation ensures malformed configs return InvalidArgument.
func TestServer_UpdateConfig_Validation(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc)

	_, err := s.UpdateConfig(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	bad, err := structpb.NewStruct(map[string]any{
		codec.StatusField: "MAYBE",
		codec.StateField:  "ARMED",
	})
	require.NoError(t, err)

	_, err = s.UpdateConfig(context.Background(), bad)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.Nil(t, svc.saved)
}

// TestServer_UpdateConfig accepts enum names case-insensitively.
func TestServer_UpdateConfig(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc)

	request, err := structpb.NewStruct(map[string]any{
		codec.StatusField: "breached",
		codec.StateField:  "Armed",
	})
	require.NoError(t, err)

	response, err := s.UpdateConfig(context.Background(), request)
	require.NoError(t, err)

	want := domain.Config{Status: domain.StatusBreached, State: domain.StateArmed}
	require.Equal(t, &want, svc.saved)

	got, err := codec.FromStruct(response)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestServer_Check forwards the image and rejects empty payloads.
func TestServer_Check(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc)

	_, err := s.Check(context.Background(), wrapperspb.Bytes(nil))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Check(context.Background(), wrapperspb.Bytes([]byte("frame")))
	require.NoError(t, err)
	require.Equal(t, []byte("frame"), svc.image)
}

// TestServer_GetAnnotatedImage returns the raw image bytes.
func TestServer_GetAnnotatedImage(t *testing.T) {
	t.Parallel()

	response, err := NewServer(new(fakeService)).GetAnnotatedImage(context.Background(), new(emptypb.Empty))
	require.NoError(t, err)
	require.Equal(t, []byte("annotated"), response.GetValue())
}

// TestServer_ErrorMapping maps every error kind to its status code and keeps the detail.
func TestServer_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{
			name: "invalid transition",
			err:  domain.NewError(domain.KindInvalidTransition, domain.ErrAlreadyArmed, "%s", domain.ErrAlreadyArmed),
			want: codes.FailedPrecondition,
		},
		{
			name: "invalid config",
			err:  domain.NewError(domain.KindInvalidConfig, domain.ErrInvalidConfig, "bad config"),
			want: codes.InvalidArgument,
		},
		{
			name: "not found",
			err:  domain.NewError(domain.KindNotFound, nil, "The File x.jpeg does not exist."),
			want: codes.NotFound,
		},
		{
			name: "process",
			err:  domain.NewError(domain.KindProcess, context.DeadlineExceeded, "worker timed out"),
			want: codes.Internal,
		},
		{
			name: "config file",
			err:  domain.NewError(domain.KindConfigFile, errTestDisk, "could not save"),
			want: codes.Internal,
		},
		{
			name: "unknown",
			err:  errTestDisk,
			want: codes.Internal,
		},
		{
			name: "canceled",
			err:  fmt.Errorf("load: %w", context.Canceled),
			want: codes.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewServer(&fakeService{err: tt.err})

			_, err := s.Arm(context.Background(), new(emptypb.Empty))
			require.Equal(t, tt.want, status.Code(err))
			require.Equal(t, tt.err.Error(), status.Convert(err).Message())

			_, err = s.GetConfig(context.Background(), new(emptypb.Empty))
			require.Equal(t, tt.want, status.Code(err))
		})
	}
}
