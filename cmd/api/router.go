package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/noah-isme/toko-billing/internal/auth"
	"github.com/noah-isme/toko-billing/internal/bill"
	"github.com/noah-isme/toko-billing/internal/cache"
	"github.com/noah-isme/toko-billing/internal/catalog"
	"github.com/noah-isme/toko-billing/internal/checkout"
	"github.com/noah-isme/toko-billing/internal/common"
	"github.com/noah-isme/toko-billing/internal/config"
	"github.com/noah-isme/toko-billing/internal/customer"
	"github.com/noah-isme/toko-billing/internal/events"
	"github.com/noah-isme/toko-billing/internal/health"
	"github.com/noah-isme/toko-billing/internal/lock"
	"github.com/noah-isme/toko-billing/internal/obs"
	"github.com/noah-isme/toko-billing/internal/payment"
	"github.com/noah-isme/toko-billing/internal/ratelimit"
	"github.com/noah-isme/toko-billing/internal/report"
	"github.com/noah-isme/toko-billing/internal/security"
	"github.com/noah-isme/toko-billing/internal/store"
)

// app carries the infrastructure the router is built from.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	repo     store.Repository
	redis    *redis.Client
	bus      *events.Bus
	registry *prometheus.Registry
	// now overrides the clock of time dependent services.
	now func() time.Time
}

func newRouter(a app) (http.Handler, error) {
	cfg := a.cfg

	authSvc, err := auth.NewService(auth.Config{
		Username:       cfg.StaffUsername,
		PasswordHash:   cfg.StaffPasswordHash,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Issuer:         cfg.JWTIssuer,
		Audience:       cfg.JWTAudience,
		ClockSkew:      30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if a.now != nil {
		authSvc.WithNow(a.now)
	}
	authMiddleware := auth.Middleware{Service: authSvc}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Items: a.repo,
		Cache: cache.New(a.redis, cfg.CatalogCacheTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	customerSvc, err := customer.NewService(a.repo, a.bus)
	if err != nil {
		return nil, fmt.Errorf("customer service: %w", err)
	}
	checkoutSvc, err := checkout.NewService(checkout.Config{
		Repo: a.repo,
		Locker: lock.Locker{
			R:            a.redis,
			RetryBackoff: cfg.LockRetryBackoff,
			MaxWait:      cfg.LockTTL,
		},
		LockTTL:           cfg.LockTTL,
		Bus:               a.bus,
		Catalog:           catalogSvc,
		LowStockThreshold: cfg.LowStockThreshold,
		Now:               a.now,
		Meter:             otel.Meter("github.com/noah-isme/toko-billing/checkout"),
	})
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}
	billSvc := bill.NewService(a.repo, cfg.Shop)
	paymentSvc := &payment.Service{Repo: a.repo, Bus: a.bus}
	reportSvc := &report.Service{
		Facts:    a.repo,
		Cache:    cache.New(a.redis, cfg.ReportCacheTTL),
		Location: cfg.Shop.Location,
		Now:      a.now,
	}

	idem := &common.Idem{R: a.redis, TTL: cfg.IdempotencyTTL}
	limiter, err := newLimiter(cfg, a.redis)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	rateLimit := ratelimit.Handler{
		Limiter: limiter,
		OnError: func(err error) { a.logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}.Middleware

	httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.HTTPBucketsMS), a.registry)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.TracingMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: a.logger, Quiet: []string{"/health", "/metrics"}}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", common.IdempotencyHeader},
		ExposedHeaders:   []string{"Content-Disposition", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{EnableHSTS: cfg.IsProduction(), HSTSMaxAge: 15552000}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	healthHandler := health.Handler{Probes: []health.Probe{
		{Name: "store", Timeout: 2 * time.Second, Check: a.repo.Ping},
		{Name: "redis", Timeout: time.Second, Check: func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }},
	}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	if cfg.Obs.EnablePprof {
		r.Mount("/debug", profiler(cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}

	loginHandler := &auth.Handler{Service: authSvc}
	r.Route("/api", func(api chi.Router) {
		api.With(rateLimit).Post("/auth/login", loginHandler.Login)

		api.Group(func(p chi.Router) {
			p.Use(authMiddleware.RequireAuth)
			p.Use(rateLimit)

			p.Route("/items", catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc}).Routes)
			p.Route("/customers", (&customer.Handler{Service: customerSvc}).Routes)
			p.Route("/bills", func(b chi.Router) {
				(&checkout.Handler{Svc: checkoutSvc, Idem: idem}).Routes(b)
				(&bill.Handler{Service: billSvc}).Routes(b)
			})
			paymentHandler := &payment.Handler{Svc: paymentSvc, Idem: idem}
			p.Route("/payments", paymentHandler.PaymentRoutes)
			p.Route("/transactions", paymentHandler.TransactionRoutes)
			p.Route("/reports", (&report.Handler{Svc: reportSvc}).Routes)
		})
	})

	return r, nil
}

func newLimiter(cfg *config.Config, client *redis.Client) (ratelimit.Limiter, error) {
	if cfg.RateLimitStrategy == config.RateLimitFixed {
		return ratelimit.NewFixed(client, "rl:api", cfg.RateLimitWindow, cfg.RateLimitMax)
	}
	return ratelimit.Sliding{Client: client, Prefix: "rl:api", Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax}, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) > 0 {
		return cfg.CORSAllowedOrigins
	}
	if cfg.IsProduction() {
		return []string{}
	}
	return []string{"http://localhost:3000", "http://localhost:5173"}
}
