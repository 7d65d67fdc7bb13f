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

	"github.com/lmittmann/tint"

	"github.com/Tutortoise/inference-benchmark/benchmark"
	"github.com/Tutortoise/inference-benchmark/images"
	"github.com/Tutortoise/inference-benchmark/inference"
)

const shutdownTimeout = 10 * time.Second

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)

	catalog, err := resolveCatalog(cfg.Catalog)
	if err != nil {
		logger.Error("failed to load image catalog", "error", err)
		os.Exit(1)
	}

	provider := inference.NewProvider(inference.ProviderConfig{
		ModelsDir:   cfg.ModelsDir,
		LibraryPath: cfg.LibraryPath,
		TopK:        cfg.TopK,
		Logger:      logger,
	})
	loader := images.NewLoader(images.LoaderConfig{Assets: embeddedAssets()})

	registry := NewSessionRegistry(cfg.MaxSessions, func(id string) (*benchmark.Controller, error) {
		return benchmark.NewController(benchmark.Config{
			SessionID:            id,
			ModelName:            cfg.ModelName,
			Provider:             provider,
			Loader:               loader,
			Catalog:              catalog,
			MaxWidth:             cfg.MaxDisplayWidth,
			MaxHeight:            cfg.MaxDisplayHeight,
			AverageOverCompleted: cfg.AverageOverCompleted,
			Logger:               logger,
		})
	}, logger)

	state := &AppState{
		Config:   cfg,
		Registry: registry,
		Host:     inference.DescribeHost(),
		Logger:   logger,
	}

	srv := &http.Server{
		Handler:      state.routes(),
		Addr:         cfg.Addr,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server",
			"addr", srv.Addr,
			"model", cfg.ModelName,
			"catalog_size", len(catalog),
			"cpu_features", state.Host.Features)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	// sessions hold onnxruntime sessions, so they go before the environment
	registry.Destroy()
	if err := inference.DestroyEnvironment(); err != nil {
		logger.Debug("onnxruntime environment not torn down", "error", err)
	}
}
