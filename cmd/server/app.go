package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"visamatch/internal/eligibility/cache"
	"visamatch/internal/eligibility/catalog"
	"visamatch/internal/eligibility/evaluator"
	"visamatch/internal/eligibility/handler"
	"visamatch/internal/eligibility/matcher"
	eligibilitymetrics "visamatch/internal/eligibility/metrics"
	"visamatch/internal/eligibility/ports"
	"visamatch/internal/eligibility/service"
	"visamatch/internal/eligibility/store"
	"visamatch/internal/platform/config"
	platformmetrics "visamatch/internal/platform/metrics"
	platformmw "visamatch/internal/platform/middleware"
	platformredis "visamatch/internal/platform/redis"
	"visamatch/internal/platform/tracing"
	"visamatch/pkg/platform/circuit"
	"visamatch/pkg/platform/httputil"
	"visamatch/pkg/platform/middleware/metadata"
	"visamatch/pkg/platform/middleware/request"
	"visamatch/pkg/platform/middleware/requesttime"
	"visamatch/pkg/platform/middleware/version"
)

const tracerName = "visamatch/eligibility"

// app holds the wired service graph for one process.
type app struct {
	holder  *evaluator.Holder
	watcher *catalog.Watcher
	router  http.Handler
	closers []func() error
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{logger: logger}
	if err := a.wire(ctx, cfg, reg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) error {
	logger := a.logger

	eligMetrics := eligibilitymetrics.New(reg)
	httpMetrics := platformmetrics.New(reg)
	observe := evaluator.WithObserver(eligMetrics)

	cat, err := catalog.LoadOrDefault(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	initial, err := cat.Evaluator(observe)
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}
	a.holder = evaluator.NewHolder(initial)
	if cfg.Catalog.Path != "" {
		a.watcher = catalog.NewWatcher(cfg.Catalog.Path, a.holder, logger,
			catalog.WithEvaluatorOptions(observe),
			catalog.WithDebounce(cfg.Catalog.Debounce),
			catalog.WithReloadHook(func(string) { eligMetrics.IncrementCatalogReloads() }),
		)
	}

	engine, health, err := a.buildEngine(ctx, cfg, eligMetrics)
	if err != nil {
		return err
	}

	jobs, verifications, err := a.buildStores(ctx, cfg)
	if err != nil {
		return err
	}

	tracer := otel.Tracer(tracerName)
	m := matcher.New(engine,
		matcher.WithConcurrency(cfg.Matcher.Concurrency),
		matcher.WithTracer(tracer),
	)
	svc := service.New(engine, m, jobs, verifications,
		service.WithLogger(logger),
		service.WithMetrics(eligMetrics),
		service.WithTracer(tracer),
	)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(tracing.HTTPMiddleware(cfg.Tracing.ServiceName))
	r.Use(platformmw.Metrics(httpMetrics, httpMetrics.InFlight))
	r.Use(request.Logger(logger))
	r.Use(request.Recovery(logger))
	r.Use(version.RuleSetHeader(a.holder))
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}

	r.Get("/health", healthHandler(a.holder, health))
	if gatherer, ok := reg.(prometheus.Gatherer); ok {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{Registry: reg}))
	}
	handler.New(svc, logger).Register(r)

	var reloader handler.CatalogReloader
	if a.watcher != nil {
		reloader = a.watcher
	}
	handler.NewAdmin(reloader, a.holder, logger).Register(r, cfg.Server.AdminToken)

	a.router = r
	return nil
}

// buildEngine wraps the holder in the configured verdict cache. health
// reports the cache backend's reachability and is nil for in-process caches.
func (a *app) buildEngine(ctx context.Context, cfg *config.Config, metrics *eligibilitymetrics.Metrics) (service.Evaluator, func(context.Context) error, error) {
	opts := []cache.Option{cache.WithLogger(a.logger), cache.WithMetrics(metrics)}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return a.holder, nil, nil
	case config.CacheRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		remote := cache.NewBreakerStore(
			cache.NewRedisStore(client.Client, cfg.Cache.TTL),
			circuit.New("redis-verdict-cache"),
			a.logger,
		)
		return cache.New(a.holder, remote, opts...), client.Health, nil
	default:
		mem := cache.NewMemoryStore(cfg.Cache.TTL,
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
			cache.WithCurrentVersion(a.holder.Version),
		)
		return cache.New(a.holder, mem, opts...), nil, nil
	}
}

// buildStores selects PostgreSQL for jobs when a DSN is configured and seeds
// fixtures. Verification records always live in memory.
func (a *app) buildStores(ctx context.Context, cfg *config.Config) (ports.JobSource, *store.InMemoryVerificationStore, error) {
	verifications := store.NewInMemoryVerificationStore()

	var (
		jobs   ports.JobSource
		writer store.JobWriter
	)
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLife)
		if err := db.PingContext(ctx); err != nil {
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		pg := store.NewPostgresJobStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		jobs, writer = pg, pg
	} else {
		mem := store.NewInMemoryJobStore()
		jobs, writer = mem, mem
	}

	fixtures, err := loadFixtures(cfg.Fixtures)
	if err != nil {
		return nil, nil, err
	}
	if fixtures != nil {
		if err := store.Seed(ctx, fixtures, writer, verifications); err != nil {
			return nil, nil, fmt.Errorf("seed fixtures: %w", err)
		}
		a.logger.Info("fixtures seeded",
			"jobs", len(fixtures.Jobs),
			"verifications", len(fixtures.Verifications),
		)
	}
	return jobs, verifications, nil
}

func loadFixtures(cfg config.FixturesConfig) (*store.Fixtures, error) {
	switch {
	case cfg.Path != "":
		return store.LoadFixtures(cfg.Path)
	case cfg.Demo:
		return store.DemoFixtures()
	default:
		return nil, nil
	}
}

type healthResponse struct {
	Status         string `json:"status"`
	RuleSetVersion string `json:"ruleSetVersion"`
	Cache          string `json:"cache,omitempty"`
}

func healthHandler(holder *evaluator.Holder, cacheHealth func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", RuleSetVersion: holder.Version()}
		if cacheHealth != nil {
			resp.Cache = "ok"
			if err := cacheHealth(r.Context()); err != nil {
				// Verdicts are still computed on a cache outage.
				resp.Status = "degraded"
				resp.Cache = "unreachable"
			}
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// Close releases external connections in reverse order of acquisition.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("closing resources", "error", err)
	}
}
