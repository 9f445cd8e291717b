package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/service/server"
	"github.com/oshokin/home-security/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// grpcAddress overrides the gRPC listen address.
	grpcAddress string
	// httpAddress overrides the REST listen address.
	httpAddress string

	// rootCmd represents the base command for running the security server.
	rootCmd = &cobra.Command{
		Use:   "security-server",
		Short: "Run the home security server.",
		Long: `Starts the home security server that owns the alarm config and runs person detection.

The server exposes the security service over gRPC and, when an HTTP address is
configured, over REST together with /metrics and /-/healthy.
Each security check spawns the configured detection worker on the submitted image;
a person detected while the alarm is armed marks it breached.
The alarm config is persisted by the configured store and every change is published.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &server.Options{
				ConfigPath:  configPath,
				GRPCAddress: grpcAddress,
				HTTPAddress: httpAddress,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the security-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&grpcAddress, "grpc-addr", "", "gRPC listen address, overrides grpc_addr")
	rootCmd.Flags().StringVar(&httpAddress, "http-addr", "", "REST listen address, overrides http_addr")
}
