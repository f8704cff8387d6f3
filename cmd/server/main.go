package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/inferloop/sdc/internal/config"
	"github.com/inferloop/sdc/internal/engine"
	"github.com/inferloop/sdc/internal/observability/health"
	"github.com/inferloop/sdc/internal/observability/metrics"
	"github.com/inferloop/sdc/internal/server"
	"github.com/inferloop/sdc/internal/storage"
	"github.com/inferloop/sdc/pkg/constants"
)

func main() {
	flags, err := ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if flags.Version {
		printVersion(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, flags *Flags) error {
	v := viper.New()
	flags.Apply(v)

	cfg, err := config.Load(v, flags.ConfigFile)
	if err != nil {
		return err
	}

	logger := cfg.Log.NewLogger()
	logger.WithFields(logrus.Fields{
		"version":   Version,
		"commit":    GitCommit,
		"buildDate": BuildDate,
		"storage":   cfg.Storage.Type,
	}).Info("Starting " + constants.AppDescription)

	promMetrics, err := metrics.NewPrometheusMetrics(&cfg.Metrics, logger)
	if err != nil {
		return err
	}

	backend := cfg.Storage.Type
	if backend == "" {
		backend = constants.StorageTypeMemory
	}
	store, err := storage.NewFactory(logger).CreateStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create %s store: %w", backend, err)
	}
	store = storage.Instrument(store, backend, promMetrics)
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close result store")
		}
	}()

	var randSource *rand.Rand
	if cfg.Engine.RandomSeed != 0 {
		randSource = rand.New(rand.NewSource(cfg.Engine.RandomSeed))
	}

	eng := engine.New(engine.Options{
		Store:      store,
		Metrics:    promMetrics,
		RandSource: randSource,
		MaxRecords: cfg.Engine.MaxRecords,
	}, logger)

	monitor := health.NewHealthMonitor(0, logger)
	monitor.RegisterCheck("storage", store.Ping, true)

	deps := server.Dependencies{
		Engine:   eng,
		Health:   monitor,
		Metrics:  promMetrics,
		Defaults: &cfg.Engine.Defaults,
		Build:    GetBuildInfo(),
	}
	if cfg.Server.EnableMetrics {
		deps.MetricsHandler = promMetrics.Handler()
	}

	srv, err := server.NewServer(&cfg.Server, deps, logger)
	if err != nil {
		return err
	}

	if err := promMetrics.Start(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	// ctx is already done, so shutdown gets a fresh deadline
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := promMetrics.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Metrics server shutdown failed")
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}
