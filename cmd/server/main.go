package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"publink/internal/analytics"
	"publink/internal/analytics/publisher"
	"publink/internal/analytics/retention"
	linkhandler "publink/internal/link/handler"
	linkmetrics "publink/internal/link/metrics"
	linkservice "publink/internal/link/service"
	linkstore "publink/internal/link/store"
	"publink/internal/platform/config"
	"publink/internal/platform/httpserver"
	"publink/internal/platform/logger"
	"publink/internal/platform/middleware"
	"publink/internal/platform/postgres"
	"publink/internal/platform/redis"
	"publink/internal/redirect"
	"publink/internal/tenant/directory"
	tenanthandler "publink/internal/tenant/handler"
	tenantmetrics "publink/internal/tenant/metrics"
	tenantservice "publink/internal/tenant/service"
	tenantstore "publink/internal/tenant/store"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient, err := redis.New(cfg.Redis())
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores fall back to memory when Postgres is not configured.
	var (
		tenants tenantstore.TenantStore
		domains tenantstore.CustomDomainStore
		links   linkstore.LinkStore
		rules   linkstore.RuleStore
		events  interface {
			analytics.EventStore
			analytics.AuditStore
		}
	)
	if pool != nil {
		tenants = tenantstore.NewPostgresTenantStore(pool)
		domains = tenantstore.NewPostgresCustomDomainStore(pool)
		links = linkstore.NewPostgresLinkStore(pool)
		rules = linkstore.NewPostgresRuleStore(pool)
		events = analytics.NewPostgresStore(pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		memTenants := tenantstore.NewInMemoryTenantStore()
		tenants = memTenants
		domains = tenantstore.NewInMemoryCustomDomainStore(memTenants)
		links = linkstore.NewInMemoryLinkStore()
		rules = linkstore.NewInMemoryRuleStore()
		events = analytics.NewInMemoryStore()
	}
	if redisClient != nil {
		links = linkstore.WrapWithCache(links, redisClient.Client, cfg.LinkCacheTTL, log)
	}

	kafkaPub, err := publisher.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		return err
	}
	defer kafkaPub.Close()

	analyticsMetrics := analytics.New()
	var pub analytics.Publisher
	if kafkaPub != nil {
		pub = kafkaPub
	}
	recorder := analytics.NewRecorder(events, pub, log, analyticsMetrics)
	go recorder.Run(ctx)

	dir := directory.New(tenants, domains, cfg.DomainCacheTTL, log,
		directory.WithMetrics(directory.NewMetrics()))

	tenantSvc := tenantservice.New(tenants, domains, events, log, tenantmetrics.New())
	linkMetrics := linkmetrics.New()
	linkSvc := linkservice.New(links, rules, tenantSvc, events, log, linkMetrics)

	enforcer := retention.New(tenants, events, events, cfg.RetentionInterval, log,
		retention.WithMetrics(retention.NewMetrics()),
		retention.WithDefaultRetentionDays(cfg.DefaultRetentionDays))
	go enforcer.Run(ctx)

	validator := middleware.NewJWTValidator(cfg.JWTSigningKey, "publink")

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		tenanthandler.New(tenantSvc).Register(r)
		linkhandler.New(linkSvc).Register(r)
	})

	redirect.New(dir, links, rules, recorder, log, linkMetrics).Register(r)

	srv := httpserver.New(cfg.Addr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn("server shutdown", "error", err.Error())
	}
	// The recorder drains its queue after the run context is cancelled.
	recorder.Wait()
	return nil
}
