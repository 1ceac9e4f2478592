// Command server runs the billing API: webhook ingest, checkout flows,
// cancellation, and the admin override surface, backed by Postgres with a
// Redis read-through cache in front.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/billingkit/migrations"
	"github.com/dmitrymomot/billingkit/modules/billing"
	"github.com/dmitrymomot/billingkit/pkg/config"
	"github.com/dmitrymomot/billingkit/pkg/httpserver"
	"github.com/dmitrymomot/billingkit/pkg/jwt"
	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/pg"
	"github.com/dmitrymomot/billingkit/pkg/redis"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

type appConfig struct {
	Logger logger.Config
	HTTP   httpserver.Config
	PG     pg.Config
	Redis  redis.Config
	JWT    jwt.Config
	Stripe subscription.StripeConfig
	Module billing.Config

	DefaultPriceID string        `env:"BILLING_DEFAULT_PRICE_ID"`
	TrialBuffer    time.Duration `env:"BILLING_TRIAL_BUFFER" envDefault:"168h"`
	CacheTTL       time.Duration `env:"BILLING_CACHE_TTL" envDefault:"5m"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(cfg.Logger, os.Stdout)
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, ".", log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("failed to close redis client", logger.Error(err))
		}
	}()

	processor, err := subscription.NewStripeProcessor(cfg.Stripe)
	if err != nil {
		return err
	}

	store := subscription.NewCachedStore(subscription.NewPGStore(pool), rdb, cfg.CacheTTL)
	svc := subscription.NewService(store, processor,
		subscription.WithLogger(log.With(logger.Component("subscription"))),
		subscription.WithDefaultPriceID(cfg.DefaultPriceID),
		subscription.WithTrialBuffer(cfg.TrialBuffer),
	)

	authSvc, err := jwt.NewService(cfg.JWT)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(pg.Healthcheck(pool), redis.Healthcheck(rdb)))
	r.Mount("/billing", billing.Router(svc, jwt.Middleware(authSvc), cfg.Module, log.With(logger.Component("billing"))))

	return httpserver.Run(ctx, cfg.HTTP, r, log)
}
