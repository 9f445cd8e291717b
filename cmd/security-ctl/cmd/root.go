package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/logger"
	"github.com/oshokin/home-security/internal/service/client"
	"github.com/oshokin/home-security/internal/version"
)

var (
	// options shared by every subcommand.
	options client.Options
	// pollInterval is the watch polling interval.
	pollInterval time.Duration
	// exitOnBreach makes watch exit with an error on the first breach.
	exitOnBreach bool

	// rootCmd represents the base command of the security client.
	rootCmd = &cobra.Command{
		Use:   "security-ctl",
		Short: "Control the home security server.",
		Long: `Talks to the home security server over gRPC.

Shows and changes the alarm config, submits images for person detection
and downloads the annotated image of the last detection.`,
		SilenceUsage: true,
	}
)

// withSession connects, runs fn and closes the connection.
func withSession(fn func(ctx context.Context, session *client.Session) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ctx = logger.WithName(ctx, "security-ctl")

	session, err := client.Connect(ctx, &options)
	if err != nil {
		return err
	}

	defer func() {
		_ = session.Close()
	}()

	return fn(ctx, session)
}

func newCommands() []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "status",
			Short: "Print the alarm config.",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withSession(func(ctx context.Context, s *client.Session) error { return s.Status(ctx) })
			},
		},
		{
			Use:   "arm",
			Short: "Activate monitoring. Only allowed while safe and disarmed.",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withSession(func(ctx context.Context, s *client.Session) error { return s.Arm(ctx) })
			},
		},
		{
			Use:   "silence",
			Short: "Acknowledge a breach, leaving the alarm safe and disarmed.",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withSession(func(ctx context.Context, s *client.Session) error { return s.Silence(ctx) })
			},
		},
		{
			Use:   "disarm",
			Short: "Deactivate monitoring, keeping the status.",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withSession(func(ctx context.Context, s *client.Session) error { return s.Disarm(ctx) })
			},
		},
		{
			Use:   "set <status> <state>",
			Short: "Replace the alarm config, e.g. set SAFE DISARMED.",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				return withSession(func(ctx context.Context, s *client.Session) error {
					return s.Set(ctx, args[0], args[1])
				})
			},
		},
		{
			Use:   "check <image-file>",
			Short: "Submit an image for person detection.",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return withSession(func(ctx context.Context, s *client.Session) error { return s.Check(ctx, args[0]) })
			},
		},
		{
			Use:   "image <out-file>",
			Short: "Download the annotated image of the last detection.",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return withSession(func(ctx context.Context, s *client.Session) error {
					return s.SaveImage(ctx, args[0])
				})
			},
		},
		{
			Use:   "watch",
			Short: "Poll the alarm config and print every change.",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withSession(func(ctx context.Context, s *client.Session) error {
					return s.Watch(ctx, pollInterval, exitOnBreach)
				})
			},
		},
	}
}

// Execute runs the security-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, client.ErrBreachDetected) {
			os.Exit(2)
		}

		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&options.ServerAddress, "server", "s", "", "gRPC server address, overrides grpc_addr")
	flags.DurationVarP(&options.Timeout, "timeout", "t", 0, "per-call timeout, overrides timeout")
	flags.BoolVar(&options.Retry, "retry", false, "retry transitions while the server is unreachable")

	commands := newCommands()
	for _, command := range commands {
		if command.Name() == "watch" {
			command.Flags().DurationVarP(&pollInterval, "interval", "i", client.DefaultPollInterval, "poll interval")
			command.Flags().BoolVar(&exitOnBreach, "exit-on-breach", false, "exit with status 2 on the first breach")
		}
	}

	rootCmd.AddCommand(commands...)
}
