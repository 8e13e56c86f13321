// Package main is the entry point for the feed API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/gratitude/internal/auth"
	"github.com/onnwee/gratitude/internal/config"
	"github.com/onnwee/gratitude/internal/db"
	"github.com/onnwee/gratitude/internal/feed"
	"github.com/onnwee/gratitude/internal/health"
	"github.com/onnwee/gratitude/internal/middleware"
	"github.com/onnwee/gratitude/internal/post"
	"github.com/onnwee/gratitude/internal/ranking"
	"github.com/onnwee/gratitude/internal/tracing"
)

const (
	serviceName    = "gratitude-feed"
	serviceVersion = "0.1.0"

	shutdownTimeout = 10 * time.Second
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "optional YAML config file; environment variables take precedence")
	flag.Parse()

	if *help {
		fmt.Println("Gratitude Feed API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			slog.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// run wires every dependency, serves until ctx is canceled and then shuts
// down gracefully.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tp, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Enabled:        cfg.TracingEnabled,
		Environment:    cfg.Env,
		ExporterType:   cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
		InsecureMode:   cfg.Env == "development",
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	// A broken calibration file is not fatal; LoadCalibration returns defaults.
	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		logger.Warn("using default ranking weights", "error", err)
	}

	database, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer database.Close()
	checkers := []health.Checker{health.NewDBChecker(database)}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	feedMetrics := feed.NewMetrics()
	if err := feedMetrics.Register(reg); err != nil {
		return fmt.Errorf("register feed metrics: %w", err)
	}
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(reg); err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	limitCfg := feedLimit(cfg)
	var limits middleware.RateLimitStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		limits = middleware.NewRedisRateLimitStore(client,
			middleware.WithRedisMetrics(httpMetrics),
			middleware.WithRedisLogger(logger),
		)
		checkers = append(checkers, health.NewRedisChecker(client))
		logger.Info("using redis rate limit store")
	} else {
		mem := middleware.NewInMemoryRateLimitStore()
		mem.StartCleanup(ctx, 5*limitCfg.WindowDuration)
		limits = mem
		logger.Info("using in-memory rate limit store")
	}

	composer := feed.NewComposer(post.NewPostgresStore(database, logger), feed.Config{
		Weights:         weights,
		DiscoveryLimit:  cfg.DiscoveryLimit,
		ExcludeOwnPosts: cfg.FeedExcludeOwnPosts,
	}, logger, feedMetrics)

	handler := newHandler(serverDeps{
		cfg:         cfg,
		logger:      logger,
		composer:    composer,
		viewers:     auth.NewJWTService(cfg.JWTSecret, cfg.JWTPreviousSecret, 0),
		limits:      limits,
		limitConfig: limitCfg,
		metrics:     httpMetrics,
		gatherer:    reg,
		checkers:    checkers,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serve(ctx, server, logger)
}

// serve runs server until ctx is canceled or the listener fails.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// feedLimit starts from the default feed limit and applies whichever of the
// configured budget and window are set.
func feedLimit(cfg *config.Config) middleware.RateLimitConfig {
	limit := middleware.DefaultFeedLimit()
	if cfg.RateLimitRequests > 0 {
		limit.RequestsPerWindow = cfg.RateLimitRequests
	}
	if cfg.RateLimitWindow > 0 {
		limit.WindowDuration = cfg.RateLimitWindow
	}
	return limit
}
