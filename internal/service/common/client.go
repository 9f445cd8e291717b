//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/home-security/internal/api/grpc/security"
	"github.com/oshokin/home-security/internal/codec"
	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/domain/security"
)

// Client wraps a connection to the SecurityService with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the security server.
	conn grpc.ClientConnInterface
	// closer releases conn; nil when the connection is owned by the caller.
	closer func() error
	// actor is attached to every call when set.
	actor *Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches the actor to every call for the server's audit log.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = &actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the security server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial security server: %w", err)
	}

	client := NewClient(conn, opts...)
	client.closer = conn.Close

	return client, nil
}

// NewClient wraps an existing connection. Close does not close it.
func NewClient(conn grpc.ClientConnInterface, opts ...Option) *Client {
	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}

	return c.closer()
}

// GetConfig retrieves the current alarm config.
func (c *Client) GetConfig(ctx context.Context) (security.Config, error) {
	return c.configCall(ctx, api.GetConfigMethod, new(emptypb.Empty), "get security config")
}

// UpdateConfig replaces the remote alarm config.
func (c *Client) UpdateConfig(ctx context.Context, cfg security.Config) (security.Config, error) {
	return c.configCall(ctx, api.UpdateConfigMethod, codec.ToStruct(cfg), "update security config")
}

// Arm activates monitoring.
func (c *Client) Arm(ctx context.Context) (security.Config, error) {
	return c.configCall(ctx, api.ArmMethod, new(emptypb.Empty), "arm")
}

// Silence acknowledges a breach.
func (c *Client) Silence(ctx context.Context) (security.Config, error) {
	return c.configCall(ctx, api.SilenceMethod, new(emptypb.Empty), "silence")
}

// Disarm deactivates monitoring.
func (c *Client) Disarm(ctx context.Context) (security.Config, error) {
	return c.configCall(ctx, api.DisarmMethod, new(emptypb.Empty), "disarm")
}

// Check submits an image for person detection.
func (c *Client) Check(ctx context.Context, image []byte) error {
	if err := c.invoke(ctx, api.CheckMethod, wrapperspb.Bytes(image), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("security check: %w", err)
	}

	return nil
}

// AnnotatedImage downloads the image annotated by the last detection.
func (c *Client) AnnotatedImage(ctx context.Context) ([]byte, error) {
	response := new(wrapperspb.BytesValue)

	if err := c.invoke(ctx, api.GetAnnotatedImageMethod, new(emptypb.Empty), response); err != nil {
		return nil, fmt.Errorf("get annotated image: %w", err)
	}

	return response.GetValue(), nil
}

func (c *Client) configCall(
	ctx context.Context,
	method string,
	request proto.Message,
	operation string,
) (security.Config, error) {
	response := new(structpb.Struct)

	if err := c.invoke(ctx, method, request, response); err != nil {
		return security.Config{}, fmt.Errorf("%s: %w", operation, err)
	}

	cfg, err := codec.FromStruct(response)
	if err != nil {
		return security.Config{}, fmt.Errorf("%s: decode response: %w", operation, err)
	}

	return cfg, nil
}

func (c *Client) invoke(ctx context.Context, method string, request, response proto.Message) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if c.actor != nil {
		callCtx = metadata.AppendToOutgoingContext(callCtx, ActorMetadataKey, c.actor.String())
	}

	return c.conn.Invoke(callCtx, method, request, response)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
