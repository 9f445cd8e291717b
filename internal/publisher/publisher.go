package publisher

import (
	"context"

	"github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/logger"
)

// Publisher broadcasts a persisted config to interested parties.
type Publisher interface {
	Publish(ctx context.Context, cfg security.Config)
}

// Log only records the change in the log. It is used when no broker is configured.
type Log struct{}

// NewLog creates a log-only publisher.
func NewLog() *Log {
	return new(Log)
}

// Publish logs the config.
func (*Log) Publish(ctx context.Context, cfg security.Config) {
	logger.InfoKV(ctx, "Security config changed", "status", cfg.Status, "state", cfg.State)
}

// Multi fans a change out to every wrapped publisher in order.
type Multi []Publisher

// Publish forwards the config to every publisher.
func (m Multi) Publish(ctx context.Context, cfg security.Config) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, cfg)
		}
	}
}
