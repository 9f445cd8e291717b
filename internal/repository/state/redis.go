package state

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/oshokin/home-security/internal/codec"
	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/domain/security"
)

// RedisRepository persists the alarm config as a JSON value under one key.
type RedisRepository struct {
	// client is the redis connection.
	client *backend.Client
	// key holds the JSON document.
	key string
}

// RedisOption configures a RedisRepository.
type RedisOption func(*RedisRepository)

// WithKey overrides the key holding the config.
func WithKey(key string) RedisOption {
	return func(r *RedisRepository) {
		if key != "" {
			r.key = key
		}
	}
}

// NewRedisRepository creates a repository on top of an existing client.
func NewRedisRepository(client *backend.Client, opts ...RedisOption) *RedisRepository {
	repo := &RedisRepository{
		client: client,
		key:    config.DefaultRedisKey,
	}

	for _, opt := range opts {
		opt(repo)
	}

	return repo
}

// Load reads the config key.
func (r *RedisRepository) Load(ctx context.Context) (security.Config, error) {
	value, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return security.Config{}, ErrNotFound
		}

		return security.Config{}, fmt.Errorf("get %s from redis: %w", r.key, err)
	}

	cfg, err := codec.UnmarshalJSON(value)
	if err != nil {
		return security.Config{}, fmt.Errorf("decode %s: %w", r.key, err)
	}

	return cfg, nil
}

// Save overwrites the config key without expiration.
func (r *RedisRepository) Save(ctx context.Context, cfg security.Config) error {
	data, err := codec.MarshalJSON(cfg)
	if err != nil {
		return err
	}

	if err = r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s in redis: %w", r.key, err)
	}

	return nil
}
