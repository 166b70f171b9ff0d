// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/chickenai/breeds-gw/pkg/adapters/http"
	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/config"
	"github.com/chickenai/breeds-gw/pkg/core/engine"
	"github.com/chickenai/breeds-gw/pkg/core/state"
	"github.com/chickenai/breeds-gw/pkg/core/vision"
	"github.com/chickenai/breeds-gw/pkg/credential"
	"github.com/chickenai/breeds-gw/pkg/entitlement"
	"github.com/chickenai/breeds-gw/pkg/filestore"
	"github.com/chickenai/breeds-gw/pkg/observability/logging"
	"github.com/chickenai/breeds-gw/pkg/observability/metrics"

	_ "github.com/chickenai/breeds-gw/pkg/filestore/filesystem"
	_ "github.com/chickenai/breeds-gw/pkg/filestore/memory"
	_ "github.com/chickenai/breeds-gw/pkg/filestore/s3"
	_ "github.com/chickenai/breeds-gw/pkg/storage/memory"
	_ "github.com/chickenai/breeds-gw/pkg/storage/postgres"
	_ "github.com/chickenai/breeds-gw/pkg/storage/sqlite"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 8080, "HTTP port to listen on")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("Chicken-AI Breeds Server\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	cfg, cfgErr := config.Load(*configPath)
	if errors.Is(cfgErr, fs.ErrNotExist) {
		cfg = config.Default()
	} else if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", cfgErr)
		os.Exit(1)
	}
	if *port != 8080 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("Starting Chicken-AI Breeds Server",
		"version", Version,
		"build_time", BuildTime)
	if cfgErr != nil {
		logger.Warn("Config file not found, using defaults", "path", *configPath)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Builtin()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("Loaded breed catalog", "breeds", cat.Len())

	m := metrics.New()

	store, err := state.Providers.New(ctx, cfg.Store.Type, map[string]string{"dsn": cfg.Store.DSN})
	if err != nil {
		return fmt.Errorf("initialize %s store: %w", cfg.Store.Type, err)
	}
	defer store.Close()
	logger.Info("Initialized collection store", "type", cfg.Store.Type)

	engineOpts := []engine.Option{
		engine.WithRecorder(m),
		engine.WithLogger(logger.Component("engine")),
	}
	if cfg.FileStore.Enabled() {
		snapshots, err := filestore.Providers.New(ctx, cfg.FileStore.Type, cfg.FileStore.Params())
		if err != nil {
			return fmt.Errorf("initialize %s file store: %w", cfg.FileStore.Type, err)
		}
		defer snapshots.Close(context.Background())
		engineOpts = append(engineOpts, engine.WithSnapshots(snapshots))
		logger.Info("Initialized snapshot archive", "type", cfg.FileStore.Type)
	} else {
		logger.Info("Snapshot archive disabled")
	}

	var creds credential.Provider
	if cfg.Credential.APIKey != "" {
		creds = credential.Static(cfg.Credential.APIKey)
		logger.Info("Using static model credential")
	} else {
		creds = credential.NewRemote(cfg.Credential.Endpoint, cfg.Credential.Timeout,
			credential.WithObserver(m),
			credential.WithLogger(logger.Component("credential")))
		logger.Info("Using remote model credential", "endpoint", cfg.Credential.Endpoint)
	}

	client := vision.New(vision.Config{
		BaseURL:         cfg.Identify.Endpoint,
		Model:           cfg.Identify.Model,
		MaxTokens:       cfg.Identify.MaxTokens,
		Temperature:     &cfg.Identify.Temperature,
		JPEGQuality:     cfg.Identify.JPEGQuality,
		Timeout:         cfg.Identify.Timeout,
		StripCodeFences: cfg.Identify.StripCodeFences,
	}, cat.Names(), creds, vision.WithLogger(logger.Component("vision")))

	var rng *rand.Rand
	if cfg.Identify.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Identify.Seed, cfg.Identify.Seed))
	}
	eng, err := engine.New(cat, client, store, rng, engineOpts...)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}

	checker, err := entitlement.NewStatic(entitlement.Mode(cfg.Entitlement.Mode), cfg.Entitlement.Subscribers)
	if err != nil {
		return fmt.Errorf("initialize entitlement: %w", err)
	}

	handler := httpAdapter.New(eng, logger.Component("http"),
		httpAdapter.WithMetrics(m),
		httpAdapter.WithEntitlement(checker),
		httpAdapter.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
