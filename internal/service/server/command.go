package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/home-security/internal/api/grpc/security"
	httpapi "github.com/oshokin/home-security/internal/api/http/security"
	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/logger"
	"github.com/oshokin/home-security/internal/metrics"
	"github.com/oshokin/home-security/internal/service/coordinator"
	"github.com/oshokin/home-security/internal/service/detector"
	"github.com/oshokin/home-security/internal/version"
)

// Options controls the security-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// GRPCAddress overrides the gRPC listen address from the settings.
	GRPCAddress string
	// HTTPAddress overrides the REST listen address from the settings.
	HTTPAddress string
	// Registry receives the server metrics; nil creates a private registry.
	Registry *prometheus.Registry
	// Ready, when set, is called with the bound addresses once both listeners accept connections.
	Ready func(grpcAddress, httpAddress net.Addr)
}

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Run starts the gRPC and HTTP servers and blocks until the context is canceled
// or one of them stops.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "security-server")
	build := version.Current()
	logger.InfoKV(ctx, "Starting security server",
		"version", build.Version,
		"commit", build.Commit,
		"go", build.GoVersion,
	)

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.GRPCAddress != "" {
		settings.GRPCAddress = opts.GRPCAddress
	}

	if opts.HTTPAddress != "" {
		settings.HTTPAddress = opts.HTTPAddress
	}

	if !logger.Configure(settings.Log.Level, logger.ParseFormat(settings.Log.Format)) {
		logger.WarnKV(ctx, "Unknown log level, keeping the current one", "level", settings.Log.Level)
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	var cleanup closers

	defer func() {
		if closeErr := cleanup.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to release resources", "error", closeErr)
		}
	}()

	svc, err := newCoordinator(ctx, settings, registry, &cleanup)
	if err != nil {
		return err
	}

	return serve(ctx, settings, svc, registry, opts.Ready)
}

// newCoordinator wires the store, publisher and detector and makes sure a config exists.
func newCoordinator(
	ctx context.Context,
	settings *config.Config,
	registry prometheus.Registerer,
	cleanup *closers,
) (*coordinator.Coordinator, error) {
	repo, err := newStore(ctx, settings.Store, cleanup)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}

	pub, err := newPublisher(ctx, settings.Publisher, cleanup)
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	m := metrics.NewMetrics(registry)
	svc := coordinator.New(repo, detector.New(detector.OptionsFromConfig(settings.Detector), m), pub, m)

	cfg, err := svc.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise security config: %w", err)
	}

	logger.InfoKV(ctx, "Security config ready", "status", cfg.Status, "state", cfg.State)

	return svc, nil
}

// serve runs both listeners until ctx ends or either fails.
func serve(
	ctx context.Context,
	settings *config.Config,
	svc *coordinator.Coordinator,
	registry *prometheus.Registry,
	ready func(grpcAddress, httpAddress net.Addr),
) error {
	lc := net.ListenConfig{}

	grpcListener, err := lc.Listen(ctx, "tcp", settings.GRPCAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.GRPCAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor))
	grpcapi.RegisterSecurityServiceServer(grpcServer, grpcapi.NewServer(svc))

	var (
		httpServer   *http.Server
		httpListener net.Listener
	)

	if settings.HTTPAddress != "" {
		httpListener, err = lc.Listen(ctx, "tcp", settings.HTTPAddress)
		if err != nil {
			_ = grpcListener.Close()

			return fmt.Errorf("listen on %s: %w", settings.HTTPAddress, err)
		}

		router := httpapi.New(svc).NewRouter()
		httpapi.MountOperational(router, registry)

		httpServer = &http.Server{
			Handler:           router,
			ReadHeaderTimeout: settings.Timeout,
		}
	}

	logger.InfoKV(ctx, "Security server listening",
		"grpc_address", grpcListener.Addr().String(),
		"http_address", settings.HTTPAddress,
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	if httpServer != nil {
		group.Go(func() error {
			if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", err)
			}

			return nil
		})
	}

	if ready != nil {
		var httpAddress net.Addr
		if httpListener != nil {
			httpAddress = httpListener.Addr()
		}

		ready(grpcListener.Addr(), httpAddress)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down servers")

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.WarnKV(ctx, "HTTP server shutdown failed", "error", err)
			}
		}

		grpcServer.GracefulStop()

		return nil
	})

	err = group.Wait()

	logger.Info(ctx, "Security server stopped")

	return err
}
