package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/logger"
	"github.com/oshokin/home-security/internal/service/common"
)

// Options configures how security-ctl reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Timeout overrides the per-call timeout from config when positive.
	Timeout time.Duration
	// Retry keeps retrying a transition while the server is unreachable.
	Retry bool
	// Out receives the human-readable output; defaults to stdout.
	Out io.Writer
}

// defaultRetryInterval defines retry delay when the server is unreachable.
const defaultRetryInterval = 1 * time.Second

// Session is a connection to the security server plus the output sink.
type Session struct {
	// client is the gRPC client.
	client *common.Client
	// out receives the human-readable output.
	out io.Writer
	// retry enables retries of transitions on unavailable servers.
	retry bool
	// retryInterval is the delay between retries.
	retryInterval time.Duration
}

// Connect loads settings and dials the server.
func Connect(ctx context.Context, opts *Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	serverAddress := cfg.GRPCAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	timeout := cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	clientOptions := []common.Option{common.WithCallTimeout(timeout)}

	// Identify current user and hostname for the server's audit log.
	if actor, actorErr := common.DetectActor(); actorErr == nil {
		clientOptions = append(clientOptions, common.WithActor(actor))
	} else {
		logger.WarnKV(ctx, "Could not detect actor", "error", actorErr)
	}

	client, err := common.Dial(ctx, serverAddress, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial server: %w", err)
	}

	logger.DebugKV(ctx, "Connected", "server_address", serverAddress, "timeout", timeout)

	session := NewSession(client, opts.Out)
	session.retry = opts.Retry

	return session, nil
}

// NewSession wraps an existing client. A nil writer prints to stdout.
func NewSession(client *common.Client, out io.Writer) *Session {
	if out == nil {
		out = os.Stdout
	}

	return &Session{
		client:        client,
		out:           out,
		retryInterval: defaultRetryInterval,
	}
}

// Close releases the connection.
func (s *Session) Close() error {
	return s.client.Close()
}

// Status prints the current config.
func (s *Session) Status(ctx context.Context) error {
	cfg, err := s.client.GetConfig(ctx)
	if err != nil {
		return err
	}

	printConfig(s.out, "", cfg)

	return nil
}

// Arm activates monitoring.
func (s *Session) Arm(ctx context.Context) error {
	return s.transition(ctx, "armed", s.client.Arm)
}

// Silence acknowledges a breach.
func (s *Session) Silence(ctx context.Context) error {
	return s.transition(ctx, "silenced", s.client.Silence)
}

// Disarm deactivates monitoring.
func (s *Session) Disarm(ctx context.Context) error {
	return s.transition(ctx, "disarmed", s.client.Disarm)
}

// Set replaces the config with the given values.
func (s *Session) Set(ctx context.Context, statusName, stateName string) error {
	cfg, err := security.ParseConfig(statusName, stateName)
	if err != nil {
		return err
	}

	return s.transition(ctx, "updated", func(ctx context.Context) (security.Config, error) {
		return s.client.UpdateConfig(ctx, cfg)
	})
}

// Check submits the image file for person detection.
func (s *Session) Check(ctx context.Context, imagePath string) error {
	image, err := os.ReadFile(filepath.Clean(imagePath))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	if err = s.client.Check(ctx, image); err != nil {
		return err
	}

	printDone(s.out, "check accepted for %s", imagePath)

	return s.Status(ctx)
}

// SaveImage downloads the annotated image to outPath.
func (s *Session) SaveImage(ctx context.Context, outPath string) error {
	image, err := s.client.AnnotatedImage(ctx)
	if err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Clean(outPath), image, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	printDone(s.out, "annotated image saved to %s (%d bytes)", outPath, len(image))

	return nil
}

// transition runs the operation once, or until the server answers when retries are on.
func (s *Session) transition(
	ctx context.Context,
	verb string,
	operation func(context.Context) (security.Config, error),
) error {
	for {
		cfg, err := operation(ctx)
		if err == nil {
			printConfig(s.out, okPrefix(verb), cfg)

			return nil
		}

		if !s.retry || !isUnavailable(err) {
			return err
		}

		logger.WarnKV(ctx, "Server unavailable, retrying", "error", err, "interval", s.retryInterval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryInterval):
		}
	}
}

// isUnavailable reports whether the server was never reached. A timed out call
// may have been applied, and repeating a transition would then be rejected.
func isUnavailable(err error) bool {
	return status.Code(err) == codes.Unavailable
}
