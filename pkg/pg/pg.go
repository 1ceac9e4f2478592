// Package pg wires the pgx/v5 connection pool used by the persistent stores:
// pool construction with startup retries, goose schema migrations from an
// embedded filesystem, and a health probe for readiness endpoints.
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN               string        `env:"DATABASE_URL,required"`
	MaxConns          int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MinConns          int32         `env:"DATABASE_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime   time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" envDefault:"30m"`
	HealthCheckPeriod time.Duration `env:"DATABASE_HEALTHCHECK_PERIOD" envDefault:"1m"`
	ConnectAttempts   int           `env:"DATABASE_CONNECT_ATTEMPTS" envDefault:"5"`
	ConnectBackoff    time.Duration `env:"DATABASE_CONNECT_BACKOFF" envDefault:"2s"`
}

var (
	ErrInvalidDSN        = errors.New("pg: invalid connection string")
	ErrConnectFailed     = errors.New("pg: database did not become reachable")
	ErrHealthcheckFailed = errors.New("pg: healthcheck failed")
	ErrMigrationFailed   = errors.New("pg: failed to apply migrations")
)

// Connect opens a connection pool and verifies it with a ping. The database
// is often still booting when the service starts, so failed attempts back
// off linearly before giving up.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrInvalidDSN, err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	attempts := max(cfg.ConnectAttempts, 1)

	var lastErr error
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnectFailed, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.ConnectBackoff):
		}
	}

	return nil, errors.Join(ErrConnectFailed, lastErr)
}

// Healthcheck adapts the pool to the func(ctx) error shape the readiness
// endpoint expects.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
