package state

import (
	"context"
	"errors"

	"github.com/oshokin/home-security/internal/domain/security"
)

// Repository defines persistence operations for the alarm config.
type Repository interface {
	Load(ctx context.Context) (security.Config, error)
	Save(ctx context.Context, cfg security.Config) error
}

// ErrNotFound is returned when no config has been persisted yet.
var ErrNotFound = errors.New("security config not found")
