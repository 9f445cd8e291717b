package client

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/logger"
)

// DefaultPollInterval defines the interval between config polls in Watch.
const DefaultPollInterval = 5 * time.Second

// ErrBreachDetected is returned by Watch when exitOnBreach is set and a breach is seen.
var ErrBreachDetected = errors.New("security breach detected")

// Watch polls the server and prints the config every time it changes.
// Poll failures are logged and retried on the next tick. It returns nil when
// ctx is canceled, or ErrBreachDetected on the first breach if exitOnBreach is set.
func (s *Session) Watch(ctx context.Context, interval time.Duration, exitOnBreach bool) error {
	ctx = logger.WithName(ctx, "watch")

	if interval <= 0 {
		interval = DefaultPollInterval
	}

	logger.InfoKV(ctx, "Watching security config", "interval", interval.String())

	var last *security.Config

	poll := func() error {
		cfg, err := s.client.GetConfig(ctx)
		if err != nil {
			logger.ErrorKV(ctx, "Poll failed", "error", err)

			return nil
		}

		if last == nil || *last != cfg {
			printConfig(s.out, time.Now().Format(time.RFC3339)+" ", cfg)
			last = &cfg
		}

		if exitOnBreach && cfg.IsBreached() {
			return ErrBreachDetected
		}

		return nil
	}

	// Poll immediately before starting the ticker.
	if err := poll(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			if err := poll(); err != nil {
				return err
			}
		}
	}
}
