package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"wmoned/internal/assertion"
	"wmoned/internal/platform/config"
	"wmoned/internal/platform/httpserver"
	"wmoned/internal/platform/logger"
	"wmoned/internal/platform/metrics"
	platformredis "wmoned/internal/platform/redis"
	"wmoned/internal/provisions"
	provisionsHandler "wmoned/internal/provisions/handler"
	provisionsMetrics "wmoned/internal/provisions/metrics"
	"wmoned/internal/ratelimit"
	"wmoned/internal/registry"
	"wmoned/pkg/idcrypt"
	audit "wmoned/pkg/platform/audit"
	"wmoned/pkg/platform/audit/publisher"
	kafkastore "wmoned/pkg/platform/audit/store/kafka"
	"wmoned/pkg/platform/audit/store/memory"
	pgstore "wmoned/pkg/platform/audit/store/postgres"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wmoned: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	srv := httpserver.New(cfg.Server.Addr, app.router, cfg.Registry.Timeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting wmoned", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}

type application struct {
	router  http.Handler
	closers []io.Closer
	logger  *slog.Logger
}

func (a *application) close() {
	// reverse order: the publisher drains into the store before the store closes
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close resource", "error", err)
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*application, error) {
	app := &application{logger: log}
	fail := func(err error) (*application, error) {
		app.close()
		return nil, err
	}

	registryClient, err := newRegistryClient(cfg.Registry, log)
	if err != nil {
		return fail(err)
	}

	var cipher provisions.Cipher
	if cfg.Documents.EncryptionKey != "" {
		c, err := idcrypt.NewFromBase64(cfg.Documents.EncryptionKey)
		if err != nil {
			return fail(fmt.Errorf("document id key: %w", err))
		}
		cipher = c
	}

	rules, err := provisions.LoadRules(cfg.Documents.RulesFile)
	if err != nil {
		return fail(err)
	}
	rules.DocumentsEnabled = cfg.Documents.Enabled

	filters := registry.Filters{Regulation: cfg.Registry.Regulation}
	if cfg.Registry.MaxEndDate != "" {
		d, err := registry.ParseDate(cfg.Registry.MaxEndDate)
		if err != nil {
			return fail(fmt.Errorf("DATE_END_NOT_OLDER_THAN: %w", err))
		}
		filters.MaxEndDate = &d
	}

	store, err := newAuditStore(ctx, cfg.Audit, app)
	if err != nil {
		return fail(err)
	}
	auditPublisher := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
	)
	app.closers = append(app.closers, auditPublisher)

	service := provisions.New(registryClient, cipher, rules,
		provisions.WithFilters(filters),
		provisions.WithLogger(log),
		provisions.WithAuditPublisher(auditPublisher),
		provisions.WithMetrics(provisionsMetrics.New()),
	)

	verifier, err := assertion.NewVerifier(assertion.Config{
		PublicKeyPEM:    cfg.Assertion.PublicKeyPEM,
		HMACSecret:      cfg.Assertion.HMACSecret,
		VerifySignature: cfg.Assertion.VerifySignature,
		Issuer:          cfg.Assertion.Issuer,
		Audience:        cfg.Assertion.Audience,
		Leeway:          cfg.Assertion.Leeway,
	})
	if err != nil {
		return fail(err)
	}
	if !cfg.Assertion.VerifySignature {
		log.Warn("assertion signatures are not verified; development only")
	}

	var revocations assertion.RevocationList = assertion.NewMemoryRevocationList()
	var limiterStore ratelimit.Store = ratelimit.NewInMemoryStore()
	var ready func(context.Context) error
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	if redisClient != nil {
		app.closers = append(app.closers, redisClient)
		revocations = assertion.NewRedisRevocationList(redisClient.Client)
		limiterStore = ratelimit.NewRedisStore(redisClient.Client)
		ready = redisClient.Health
	}

	limiter := ratelimit.New(limiterStore, cfg.RateLimit.Requests, cfg.RateLimit.Window, log,
		ratelimit.WithMetrics(ratelimit.NewMetrics()),
	)

	app.router = newRouter(routerDeps{
		logger:         log,
		metrics:        metrics.New(),
		auth:           assertion.NewMiddleware(verifier, revocations, auditPublisher, log),
		rateLimit:      limiter,
		provisions:     provisionsHandler.New(service, log),
		assertions:     assertion.NewHandler(revocations, log),
		requestTimeout: cfg.Registry.Timeout + 5*time.Second,
		ready:          ready,
	})
	return app, nil
}

func newRegistryClient(cfg config.Registry, log *slog.Logger) (*registry.Client, error) {
	rc := registry.Config{
		BaseURL:          cfg.BaseURL,
		Token:            cfg.Token,
		MunicipalityCode: cfg.MunicipalityCode,
		Timeout:          cfg.Timeout,
	}
	if len(cfg.ClientCertPEM) > 0 {
		tlsCfg, err := registry.NewTLSConfig(cfg.ClientCertPEM, cfg.ClientKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("registry client certificate: %w", err)
		}
		rc.TLS = tlsCfg
	}
	return registry.NewClient(rc,
		registry.WithLogger(log),
		registry.WithMetrics(registry.NewMetrics()),
	), nil
}

func newAuditStore(ctx context.Context, cfg config.Audit, app *application) (audit.Store, error) {
	switch cfg.Store {
	case config.AuditStorePostgres:
		pool, err := pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, closerFunc(func() error { pool.Close(); return nil }))
		store := pgstore.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.AuditStoreKafka:
		client, err := kafkastore.NewClient(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, closerFunc(func() error { client.Close(); return nil }))
		return kafkastore.New(client, cfg.KafkaTopic), nil
	default:
		return memory.NewInMemoryStore(), nil
	}
}
