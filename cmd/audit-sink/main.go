package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"wmoned/internal/platform/config"
	"wmoned/internal/platform/logger"
	"wmoned/pkg/platform/audit/consumer"
	pgstore "wmoned/pkg/platform/audit/store/postgres"
)

// main runs the audit sink: it drains the audit topic into Postgres so the
// API can publish without waiting on the database.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "audit-sink: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.SinkFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := pgstore.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	client, err := consumer.NewGroupClient(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ConsumerGroup)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := consumer.EnsureTopic(ctx, client, cfg.KafkaTopic); err != nil {
		return err
	}

	sink := consumer.New(client, store, log, consumer.WithMetrics(consumer.NewMetrics()))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("audit sink consuming", "topic", cfg.KafkaTopic, "group", cfg.ConsumerGroup)
		return sink.Run(gctx)
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
