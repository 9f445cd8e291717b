package publisher

import (
	"context"

	backend "github.com/redis/go-redis/v9"

	"github.com/oshokin/home-security/internal/codec"
	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/logger"
)

// Redis publishes config changes as JSON on a redis pub/sub channel.
// Every subscriber of the channel receives every change.
type Redis struct {
	// client is the redis connection.
	client *backend.Client
	// channel is the pub/sub channel name.
	channel string
}

// NewRedis creates a redis publisher. An empty channel uses config.DefaultChannel.
func NewRedis(client *backend.Client, channel string) *Redis {
	if channel == "" {
		channel = config.DefaultChannel
	}

	return &Redis{
		client:  client,
		channel: channel,
	}
}

// Channel returns the pub/sub channel name.
func (r *Redis) Channel() string {
	return r.channel
}

// Publish sends the config to the channel, logging failures.
func (r *Redis) Publish(ctx context.Context, cfg security.Config) {
	payload, err := codec.MarshalJSON(cfg)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode config for publishing", "error", err)
		return
	}

	receivers, err := r.client.Publish(ctx, r.channel, payload).Result()
	if err != nil {
		logger.ErrorKV(ctx, "Failed to publish config", "channel", r.channel, "error", err)
		return
	}

	logger.DebugKV(ctx, "Config published", "channel", r.channel, "receivers", receivers, "config", cfg.String())
}
