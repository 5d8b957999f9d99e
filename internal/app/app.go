// Package app wires the storefront API server from its configuration.
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/newsletter"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/redis"
	"github.com/xenking/storefront/internal/storage/sqlite"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog", cfg.CatalogSource),
		zap.String("cart", cfg.CartBackend),
	)

	pricing, err := cfg.Pricing.Parse()
	if err != nil {
		return errors.Wrap(err, "parse pricing")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("runtime", time.Second, health.RuntimeCheck(health.RuntimeLimits{
		MaxGoroutines: 10_000,
		MaxGCPause:    time.Second,
	}))

	// PostgreSQL pool + migrations.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.Ping(pool))
	}

	// Catalog.
	provider, err := newCatalogProvider(cfg, pool)
	if err != nil {
		return err
	}
	if cfg.CatalogCache.Size > 0 {
		provider = catalog.NewCache(provider, cfg.CatalogCache.Size, cfg.CatalogCache.TTL)
	}
	browser := catalog.NewBrowser(provider, catalog.BrowserConfig{
		FetchTimeout: cfg.FetchTimeout,
	}, m.TracerProvider())

	// Cart sessions.
	cartRepo, closeRepo, err := newCartRepository(ctx, cfg, pool, m.TracerProvider())
	if err != nil {
		return err
	}
	defer closeRepo()
	if cfg.CartBackend != CartMemory {
		healthSvc.AddReadinessCheck("cart", 2*time.Second, cart.HealthCheck(cartRepo),
			health.WithThresholds(2, 1))
	}

	sessions, err := cart.NewSessions(cartRepo, cart.SessionsConfig{
		MaxSessions: cfg.Sessions.MaxLive,
		IdleTTL:     cfg.Sessions.IdleTTL,
		LoadTimeout: cfg.Sessions.LoadTimeout,
	}, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create cart sessions")
	}

	// Newsletter.
	var subscribers newsletter.Repository = newsletter.NewMemoryRepository()
	if pool != nil {
		subscribers = postgres.NewSubscriberRepository(pool)
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{
			ImageBaseURL: cfg.ImageBaseURL,
			Pricing:      pricing,
			SessionTTL:   cfg.Sessions.CookieTTL,
			SecureCookie: cfg.Sessions.CookieSecure,
		},
		browser,
		sessions,
		newsletter.NewService(subscribers),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newHTTPHandler(ctx, cfg, m, healthSvc, h),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHTTPHandler mounts the health endpoints and API routes on one router
// and wraps it with the middleware chain.
func newHTTPHandler(
	ctx context.Context,
	cfg *Config,
	m httpmiddleware.Telemetry,
	healthSvc *health.Health,
	h *handler.Handler,
) http.Handler {
	router := mux.NewRouter()
	healthSvc.Register(router)
	h.Register(router)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	return httpmiddleware.Wrap(router,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", handler.SessionHeader},
			ExposeHeaders:    []string{handler.SessionHeader, httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Rules: []httpmiddleware.RateLimitRule{
				{Name: "client", Max: cfg.RateLimit.Max, Window: cfg.RateLimit.Window, Key: httpmiddleware.ClientIP},
				{Name: "cart", Max: cfg.RateLimit.CartMax, Window: cfg.RateLimit.Window, Key: cartWriteKey},
			},
			Skip: health.IsProbe,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument("storefront-api", routeFinder, m),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
}

// cartWriteKey buckets cart mutations by session so one cart cannot flood
// the backend from many addresses. Reads and session-less requests are not
// limited by it.
func cartWriteKey(r *http.Request) string {
	if r.Method == http.MethodGet || !strings.HasPrefix(r.URL.Path, "/api/cart") {
		return ""
	}
	return handler.RequestSession(r)
}

func newCatalogProvider(cfg *Config, pool *pgxpool.Pool) (catalog.Provider, error) {
	if cfg.CatalogSource == CatalogPostgres {
		return postgres.NewCatalogProvider(pool), nil
	}
	ds, err := catalog.DecodeDataset(db.Catalog)
	if err != nil {
		return nil, errors.Wrap(err, "load embedded catalog")
	}
	return catalog.NewStaticProvider(ds), nil
}

// newCartRepository opens the configured cart backend. The returned func
// releases it.
func newCartRepository(
	ctx context.Context,
	cfg *Config,
	pool *pgxpool.Pool,
	tracerProvider trace.TracerProvider,
) (cart.Repository, func(), error) {
	switch cfg.CartBackend {
	case CartPostgres:
		return postgres.NewCartRepository(pool), func() {}, nil
	case CartRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL, tracerProvider)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connect redis")
		}
		return redis.NewCartRepository(client, cfg.Sessions.CookieTTL), func() { _ = client.Close() }, nil
	case CartSQLite:
		sqlDB, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open sqlite")
		}
		return sqlite.NewCartRepository(sqlDB), func() { _ = sqlDB.Close() }, nil
	default:
		return cart.NewMemoryRepository(), func() {}, nil
	}
}
