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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/qdrant/rivet-plugin-qdrant/internal/config"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/point"
	logpkg "github.com/qdrant/rivet-plugin-qdrant/internal/logger"
	"github.com/qdrant/rivet-plugin-qdrant/internal/metrics"
	"github.com/qdrant/rivet-plugin-qdrant/internal/node"
	"github.com/qdrant/rivet-plugin-qdrant/internal/registry"
	chiTransport "github.com/qdrant/rivet-plugin-qdrant/internal/transport/chi"
	openaiEmb "github.com/qdrant/rivet-plugin-qdrant/internal/transport/openai"
	"github.com/qdrant/rivet-plugin-qdrant/internal/transport/qdrant"
	"github.com/qdrant/rivet-plugin-qdrant/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting qdrant node host",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("qdrant_url", cfg.Qdrant.URL),
		zap.String("id_coercion", cfg.Nodes.IDCoercion),
		zap.Bool("strict_filters", cfg.Nodes.StrictFilters),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	// Validated by config.Load.
	coercion, _ := point.ParseCoercion(cfg.Nodes.IDCoercion)

	// One REST client per invocation
	dial := func(c node.Connection) node.Service {
		return qdrant.New(qdrant.Config{URL: c.URL, APIKey: c.APIKey, Logger: logger})
	}

	// Pass a nil interface (not a typed nil pointer) when embedding is off.
	var embedder node.Embedder
	if cfg.Embedding.Enabled() {
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
		logger.Info("Embedder created",
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	reg, err := registry.Build(registry.Deps{
		Dial:          dial,
		Embedder:      embedder,
		IDCoercion:    coercion,
		StrictFilters: cfg.Nodes.StrictFilters,
	})
	if err != nil {
		logger.Fatal("Failed to build node registry", zap.Error(err))
	}
	logger.Info("Nodes registered", zap.Int("count", len(reg.Types())))

	server := chiTransport.NewServer(reg, map[string]string{
		registry.SettingURL:    cfg.Qdrant.URL,
		registry.SettingAPIKey: cfg.Qdrant.APIKey,
	}, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.RequestLogger(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
