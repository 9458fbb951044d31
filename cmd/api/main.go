package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/imagehelper/internal/api"
	"github.com/dunamismax/imagehelper/internal/config"
	"github.com/dunamismax/imagehelper/internal/imagestore"
	"github.com/dunamismax/imagehelper/internal/normalizer"
	"github.com/dunamismax/imagehelper/internal/ratelimit"
	"github.com/dunamismax/imagehelper/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lmsgprefix)

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), telemetry.TraceConfig{
		ServiceName:  telemetry.DefaultServiceName,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}

	n, err := normalizer.New()
	if err != nil {
		logger.Fatalf("normalizer init failed: %v", err)
	}
	defer normalizer.Shutdown()

	registry := prometheus.NewRegistry()
	store, err := imagestore.New(imagestore.Config{
		Root:           cfg.Storage.PublicRoot,
		Allowed:        cfg.Storage.Allowed,
		Constraint:     cfg.Encode.Constraint(),
		Limits:         cfg.Encode.Limits(),
		MaxUploadBytes: cfg.API.MaxUploadBytes,
	}, n, logger, imagestore.NewMetrics(registry))
	if err != nil {
		logger.Fatalf("image store init failed: %v", err)
	}

	opts := []api.Option{
		api.WithRegistry(registry),
		api.WithMaxUploadBytes(cfg.API.MaxUploadBytes),
		api.WithDefaultDir(cfg.Storage.DefaultDir),
	}

	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(cfg.RateLimit.RedisOptions())
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Printf("redis client close error: %v", err)
			}
		}()

		limiter, err := ratelimit.NewRedisTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.Window, "")
		if err != nil {
			logger.Fatalf("rate limiter init failed: %v", err)
		}
		opts = append(opts, api.WithRateLimiter(limiter, cfg.RateLimit.UserIDHeader))
		logger.Printf("rate limiting enabled capacity=%d window=%s redis=%s", cfg.RateLimit.Capacity, cfg.RateLimit.Window, cfg.RateLimit.RedisAddr)
	}

	app := api.NewServer(logger, store, opts...)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s public_root=%s", cfg.API.Addr, store.Root())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Printf("tracing shutdown failed: %v", err)
	}
}
