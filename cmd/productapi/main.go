package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	cfhttp "github.com/Strob0t/productapi/internal/adapter/http"
	cfotel "github.com/Strob0t/productapi/internal/adapter/otel"
	"github.com/Strob0t/productapi/internal/config"
	"github.com/Strob0t/productapi/internal/logger"
	"github.com/Strob0t/productapi/internal/middleware"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}

	cfg, err := config.LoadWithFlags(config.DefaultConfigFile, flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// The async handler must not see records after Close, so a synchronous
	// logger takes over first.
	appLog, closeLog := logger.New(cfg.Logging)
	slog.SetDefault(appLog)
	defer func() {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
		closeLog.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(flags.Args) > 0 {
		switch flags.Args[0] {
		case "serve":
		case "migrate":
			return runMigrate(ctx, cfg, flags.Args[1:])
		default:
			return fmt.Errorf("unknown command: %s", flags.Args[0])
		}
	}
	return serve(ctx, cfg)
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"nats", cfg.NATS.Enabled,
		"cache", cfg.Cache.Enabled,
		"log_level", cfg.Logging.Level,
	)

	// --- Observability ---

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTEL(shutdownCtx); err != nil {
			slog.Error("otel shutdown failed", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	deps, err := wire(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer deps.close()

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	r.Use(limiter.Handler)
	if deps.idempotency != nil {
		r.Use(middleware.Idempotency(deps.idempotency, cfg.Idempotency.TTL))
	}

	cfhttp.MountRoutes(r, deps.handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		limiter.Run(gctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
		return nil
	})

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
