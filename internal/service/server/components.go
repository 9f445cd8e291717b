package server

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/logger"
	"github.com/oshokin/home-security/internal/publisher"
	"github.com/oshokin/home-security/internal/repository/state"
)

// closers releases resources in reverse acquisition order.
type closers []func() error

func (c *closers) add(closer func() error) {
	*c = append(*c, closer)
}

// Close runs every closer and joins their errors.
func (c closers) Close() error {
	var errs []error

	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// newStore opens the repository selected by the store settings.
func newStore(ctx context.Context, settings config.StoreConfig, cleanup *closers) (state.Repository, error) {
	switch settings.Driver {
	case config.StoreSQLite:
		repo, err := state.OpenSQLite(ctx, settings.Path)
		if err != nil {
			return nil, err
		}

		cleanup.add(repo.Close)
		logger.InfoKV(ctx, "Using sqlite config store", "path", settings.Path)

		return repo, nil
	case config.StoreRedis:
		client, err := newRedisClient(ctx, settings.RedisAddress, cleanup)
		if err != nil {
			return nil, err
		}

		logger.InfoKV(ctx, "Using redis config store", "address", settings.RedisAddress, "key", settings.RedisKey)

		return state.NewRedisRepository(client, state.WithKey(settings.RedisKey)), nil
	default:
		logger.InfoKV(ctx, "Using file config store", "path", settings.Path)

		return state.NewFileRepository(settings.Path), nil
	}
}

// newPublisher builds the broadcaster selected by the publisher settings.
// Every change is also logged.
func newPublisher(ctx context.Context, settings config.PublisherConfig, cleanup *closers) (publisher.Publisher, error) {
	if settings.Driver != config.PublisherRedis {
		return publisher.NewLog(), nil
	}

	client, err := newRedisClient(ctx, settings.RedisAddress, cleanup)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Publishing config changes to redis", "address", settings.RedisAddress, "channel", settings.Channel)

	return publisher.Multi{
		publisher.NewLog(),
		publisher.NewRedis(client, settings.Channel),
	}, nil
}

// newRedisClient connects and pings so misconfiguration fails at startup.
func newRedisClient(ctx context.Context, address string, cleanup *closers) (*backend.Client, error) {
	client := backend.NewClient(&backend.Options{Addr: address})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connect to redis at %s: %w", address, err)
	}

	cleanup.add(client.Close)

	return client, nil
}
