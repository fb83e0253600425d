package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/productapi/internal/adapter/cachedstore"
	cfhttp "github.com/Strob0t/productapi/internal/adapter/http"
	"github.com/Strob0t/productapi/internal/adapter/memory"
	cfnats "github.com/Strob0t/productapi/internal/adapter/nats"
	"github.com/Strob0t/productapi/internal/adapter/natskv"
	cfotel "github.com/Strob0t/productapi/internal/adapter/otel"
	"github.com/Strob0t/productapi/internal/adapter/postgres"
	"github.com/Strob0t/productapi/internal/adapter/ristretto"
	"github.com/Strob0t/productapi/internal/adapter/tiered"
	"github.com/Strob0t/productapi/internal/config"
	"github.com/Strob0t/productapi/internal/port/cache"
	"github.com/Strob0t/productapi/internal/port/database"
	"github.com/Strob0t/productapi/internal/resilience"
	"github.com/Strob0t/productapi/internal/service"
)

// deps holds the wired application graph and the cleanup for everything
// that was opened to build it.
type deps struct {
	handlers    *cfhttp.Handlers
	idempotency cache.Cache
	closers     []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// wire builds the store, cache, event publisher and HTTP handlers from cfg.
// On error everything opened so far is closed.
func wire(ctx context.Context, cfg *config.Config, metrics *cfotel.Metrics) (_ *deps, err error) {
	d := &deps{handlers: &cfhttp.Handlers{}}
	defer func() {
		if err != nil {
			d.close()
		}
	}()

	// NATS
	var queue *cfnats.Queue
	if cfg.NATS.Enabled {
		queue, err = cfnats.Connect(ctx, cfg.NATS)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		d.closers = append(d.closers, func() {
			if err := queue.Drain(); err != nil {
				slog.Error("nats drain failed", "error", err)
			}
		})
		d.handlers.Checks = append(d.handlers.Checks, cfhttp.HealthCheck{
			Name: "nats",
			Check: func(context.Context) error {
				if !queue.IsConnected() {
					return fmt.Errorf("not connected")
				}
				return nil
			},
		})
	}

	// Store
	var store database.ProductStore
	switch cfg.Store.Backend {
	case config.StorePostgres:
		store, err = wirePostgres(ctx, cfg, queue, d)
		if err != nil {
			return nil, err
		}
	default:
		store = memory.NewStore()
		slog.Info("using in-memory product store")
	}
	if p, ok := store.(pinger); ok {
		d.handlers.Checks = append(d.handlers.Checks, cfhttp.HealthCheck{Name: "store", Critical: true, Check: p.Ping})
	}

	// Services
	products := service.NewProductService(store)
	products.SetMetrics(metrics)
	if queue != nil {
		breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
		breaker.OnStateChange(func(from, to resilience.State) {
			slog.Warn("event publisher circuit breaker state changed", "from", from, "to", to)
		})
		products.SetPublisher(queue, breaker)
	}
	d.handlers.Products = products

	// Idempotency
	if cfg.Idempotency.Enabled {
		d.idempotency, err = wireIdempotency(ctx, cfg, queue, d)
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// wirePostgres opens the pool, applies migrations when enabled and wraps the
// store with the read-through product cache.
func wirePostgres(ctx context.Context, cfg *config.Config, queue *cfnats.Queue, d *deps) (database.ProductStore, error) {
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	d.closers = append(d.closers, pool.Close)
	slog.Info("postgres connected", "max_conns", cfg.Postgres.MaxConns)

	if cfg.Postgres.AutoMigrate {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
	}

	var store database.ProductStore = postgres.NewStore(pool)
	if !cfg.Cache.Enabled {
		return store, nil
	}

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB, cfg.Cache.L1TTL)
	if err != nil {
		return nil, fmt.Errorf("product cache: %w", err)
	}
	d.closers = append(d.closers, l1.Close)

	var l2 cache.Cache
	if queue != nil {
		kv, err := natskv.Open(ctx, queue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			return nil, fmt.Errorf("product cache l2: %w", err)
		}
		l2 = kv
	}

	slog.Info("product cache enabled", "l1_size_mb", cfg.Cache.L1MaxSizeMB, "l2", l2 != nil)
	return cachedstore.New(store, tiered.New(l1, l2, cfg.Cache.L1TTL), cfg.Cache.L2TTL), nil
}

// wireIdempotency builds the Idempotency-Key response cache. Without NATS
// the records are only kept in-process.
func wireIdempotency(ctx context.Context, cfg *config.Config, queue *cfnats.Queue, d *deps) (cache.Cache, error) {
	l1, err := ristretto.New(16, cfg.Idempotency.TTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency cache: %w", err)
	}
	d.closers = append(d.closers, l1.Close)

	var l2 cache.Cache
	if queue != nil {
		kv, err := natskv.Open(ctx, queue.JetStream(), cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency cache l2: %w", err)
		}
		l2 = kv
	}
	return tiered.New(l1, l2, cfg.Idempotency.TTL), nil
}
