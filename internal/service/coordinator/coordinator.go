package coordinator

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/logger"
	"github.com/oshokin/home-security/internal/metrics"
	"github.com/oshokin/home-security/internal/publisher"
	"github.com/oshokin/home-security/internal/repository/state"
	"github.com/oshokin/home-security/internal/service/detector"
)

// Detector runs person detection on a single image.
type Detector interface {
	// Detect blocks until the worker has produced a verdict.
	Detect(ctx context.Context, image []byte) (detector.Verdict, error)
	// AnnotatedImagePath is where the last successful run left its output.
	AnnotatedImagePath() string
}

// Operation outcomes used as metric labels.
const (
	outcomeApplied  = "applied"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
	outcomeSkipped  = "skipped"
)

// Coordinator owns the alarm config and every operation that reads or changes it.
type Coordinator struct {
	// repo persists the config.
	repo state.Repository
	// detector runs the detection worker.
	detector Detector
	// publisher announces every persisted config.
	publisher publisher.Publisher
	// metrics records transitions; may be nil.
	metrics *metrics.Metrics
	// mu serializes every load-guard-save sequence.
	mu sync.Mutex
}

// New creates a Coordinator. A nil publisher only logs changes; metrics may be nil.
func New(repo state.Repository, d Detector, pub publisher.Publisher, m *metrics.Metrics) *Coordinator {
	if pub == nil {
		pub = publisher.NewLog()
	}

	return &Coordinator{
		repo:      repo,
		detector:  d,
		publisher: pub,
		metrics:   m,
	}
}

// Initialize creates the default config when the store holds none.
func (c *Coordinator) Initialize(ctx context.Context) (security.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := c.load(ctx)
	switch {
	case err == nil:
		logger.InfoKV(ctx, "Security config loaded", "config", cfg.String())

		return cfg, nil
	case security.IsKind(err, security.KindNotFound):
		logger.Info(ctx, "No security config found, creating the default one")

		return c.persist(ctx, security.DefaultConfig())
	default:
		return security.Config{}, err
	}
}

// Config returns the stored config.
func (c *Coordinator) Config(ctx context.Context) (security.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.load(ctx)
}

// SaveConfig stores an arbitrary valid config and returns the persisted value.
func (c *Coordinator) SaveConfig(ctx context.Context, cfg security.Config) (security.Config, error) {
	if err := cfg.Validate(); err != nil {
		return security.Config{}, security.NewError(security.KindInvalidConfig, err, "%s", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	saved, err := c.persist(ctx, cfg)
	c.observe("update", err)

	return saved, err
}

// PerformCheck runs detection on the image and records a breach when a person is
// found while the alarm is armed. The verdict itself is never returned.
func (c *Coordinator) PerformCheck(ctx context.Context, image []byte) error {
	verdict, err := c.detector.Detect(ctx, image)
	if err != nil {
		return err
	}

	if verdict != detector.PersonDetected {
		logger.Info(ctx, "No person detected")

		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.load(ctx)
	if err != nil {
		return err
	}

	breached, applied := security.RecordBreach(current)
	if !applied {
		logger.InfoKV(ctx, "Person detected while disarmed, ignoring", "config", current.String())
		c.count("breach", outcomeSkipped)

		return nil
	}

	logger.WarnKV(ctx, "Person detected while armed", "config", current.String())

	_, err = c.persist(ctx, breached)
	c.observe("breach", err)

	return err
}

// Arm activates monitoring.
func (c *Coordinator) Arm(ctx context.Context) (security.Config, error) {
	return c.transition(ctx, "arm", security.Arm)
}

// Silence acknowledges a breach and leaves the alarm safe and disarmed.
func (c *Coordinator) Silence(ctx context.Context) (security.Config, error) {
	return c.transition(ctx, "silence", security.Silence)
}

// Disarm deactivates monitoring.
func (c *Coordinator) Disarm(ctx context.Context) (security.Config, error) {
	return c.transition(ctx, "disarm", func(cfg security.Config) (security.Config, error) {
		return security.Disarm(cfg), nil
	})
}

// Deactivate silences the alarm when possible and disarms it otherwise.
//
// Deprecated: use Silence or Disarm.
func (c *Coordinator) Deactivate(ctx context.Context) (security.Config, error) {
	return c.transition(ctx, "deactivate", func(cfg security.Config) (security.Config, error) {
		return security.Deactivate(cfg), nil //nolint:staticcheck // Kept for clients of the old endpoint.
	})
}

// AnnotatedImage returns the image left by the last successful detection.
func (c *Coordinator) AnnotatedImage(ctx context.Context) ([]byte, error) {
	path := c.detector.AnnotatedImagePath()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, security.NewError(security.KindNotFound, err, "The File %s does not exist.", path)
		}

		return nil, security.NewError(
			security.KindImageRead,
			err,
			"The image %s could not be read due to an error with message %q.",
			path,
			err.Error(),
		)
	}

	logger.DebugKV(ctx, "Annotated image read", "path", path, "bytes", len(data))

	return data, nil
}

// transition applies a guard to a freshly loaded config and persists the result.
func (c *Coordinator) transition(
	ctx context.Context,
	operation string,
	guard func(security.Config) (security.Config, error),
) (security.Config, error) {
	ctx = logger.WithKV(ctx, "operation", operation)

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.load(ctx)
	if err != nil {
		c.count(operation, outcomeFailed)

		return security.Config{}, err
	}

	next, err := guard(current)
	if err != nil {
		logger.WarnKV(ctx, "Transition rejected", "config", current.String(), "reason", err)
		c.count(operation, outcomeRejected)

		return security.Config{}, err
	}

	saved, err := c.persist(ctx, next)
	c.observe(operation, err)

	return saved, err
}

// persist saves the config, reloads it and publishes the reloaded value.
// Callers must hold mu.
func (c *Coordinator) persist(ctx context.Context, cfg security.Config) (security.Config, error) {
	if err := c.repo.Save(ctx, cfg); err != nil {
		logger.ErrorKV(ctx, "Failed to save security config", "config", cfg.String(), "error", err)

		return security.Config{}, security.NewError(
			security.KindConfigFile,
			err,
			"Could not save the security config %s due to an error with message %q.",
			cfg.String(),
			err.Error(),
		)
	}

	saved, err := c.load(ctx)
	if err != nil {
		return security.Config{}, err
	}

	c.publisher.Publish(ctx, saved)

	logger.InfoKV(ctx, "Security config saved", "config", saved.String())

	return saved, nil
}

// load reads the config and classifies store failures.
func (c *Coordinator) load(ctx context.Context) (security.Config, error) {
	cfg, err := c.repo.Load(ctx)
	if err == nil {
		return cfg, nil
	}

	if errors.Is(err, state.ErrNotFound) {
		return security.Config{}, security.NewError(
			security.KindNotFound,
			err,
			"The security config was not found. An error with message %q was returned.",
			err.Error(),
		)
	}

	logger.ErrorKV(ctx, "Failed to load security config", "error", err)

	return security.Config{}, security.NewError(
		security.KindConfigFile,
		err,
		"Could not retrieve security config due to an error with message %q.",
		err.Error(),
	)
}

func (c *Coordinator) observe(operation string, err error) {
	if err != nil {
		c.count(operation, outcomeFailed)

		return
	}

	c.count(operation, outcomeApplied)
}

func (c *Coordinator) count(operation, outcome string) {
	if c.metrics == nil {
		return
	}

	c.metrics.TransitionsTotal.WithLabelValues(operation, outcome).Inc()
}
