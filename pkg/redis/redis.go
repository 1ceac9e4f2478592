// Package redis connects the go-redis client used by the subscription
// read-through cache and exposes a health probe for readiness endpoints.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	URL             string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	ConnectTimeout  time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"15s"`
	ConnectAttempts int           `env:"REDIS_CONNECT_ATTEMPTS" envDefault:"3"`
	ConnectBackoff  time.Duration `env:"REDIS_CONNECT_BACKOFF" envDefault:"2s"`
}

var (
	ErrInvalidURL        = errors.New("redis: invalid connection URL")
	ErrConnectFailed     = errors.New("redis: server did not become reachable")
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)

// Connect dials the server described by cfg and verifies it with a ping,
// retrying until the attempt budget or the connect timeout runs out.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	attempts := max(cfg.ConnectAttempts, 1)

	var lastErr error
	for range attempts {
		client := redis.NewClient(opts)
		err := client.Ping(ctx).Err()
		if err == nil {
			return client, nil
		}
		lastErr = err
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnectFailed, ctx.Err())
		case <-time.After(cfg.ConnectBackoff):
		}
	}

	return nil, errors.Join(ErrConnectFailed, lastErr)
}

// Healthcheck adapts the client to the func(ctx) error shape the readiness
// endpoint expects.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
