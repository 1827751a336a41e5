package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/pixelthin/internal/codec"
	"github.com/dunamismax/pixelthin/internal/config"
	"github.com/dunamismax/pixelthin/internal/domain"
	"github.com/dunamismax/pixelthin/internal/fetch"
	"github.com/dunamismax/pixelthin/internal/proxy"
	"github.com/dunamismax/pixelthin/internal/ratelimit"
	"github.com/dunamismax/pixelthin/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[pixelthin] ", log.LstdFlags|log.Lmsgprefix)

	port := flag.Int("port", 0, "port to listen on (overrides PIXELTHIN_ADDR)")
	useJXL := flag.Bool("jxl", false, "encode to JPEG XL instead of WebP")
	speed := flag.Int("speed", 0, "JPEG XL encoder speed 1-8: 1 fastest, 8 best compression (overrides PIXELTHIN_JXL_SPEED)")
	flag.Parse()

	if *port > 0 {
		cfg.Server.Addr = fmt.Sprintf(":%d", *port)
	}
	if *useJXL {
		cfg.Encoding.Format = string(domain.FormatJXL)
	}
	if *speed > 0 {
		cfg.Encoding.JXLSpeed = *speed
	}

	format, err := domain.ParseFormat(cfg.Encoding.Format)
	if err != nil {
		logger.Fatalf("invalid encoder format: %v", err)
	}
	profile, err := domain.NewEncodingProfile(format, cfg.Encoding.JXLSpeed)
	if err != nil {
		logger.Fatalf("invalid encoding profile: %v", err)
	}

	if err := codec.Startup(); err != nil {
		logger.Fatalf("codec startup failed: %v", err)
	}
	defer codec.Shutdown()

	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Config{
		ServiceName:  "pixelthin",
		Exporter:     cfg.Trace.Exporter,
		OTLPEndpoint: cfg.Trace.OTLPEndpoint,
		OTLPInsecure: cfg.Trace.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}

	var limiter proxy.RateLimiter
	if cfg.RateLimit.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		limiter, err = ratelimit.NewTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.Window, "")
		if err != nil {
			logger.Fatalf("rate limiter setup failed: %v", err)
		}
		logger.Printf("rate limiting enabled redis=%s capacity=%d window=%s",
			cfg.RateLimit.RedisAddr, cfg.RateLimit.Capacity, cfg.RateLimit.Window)
	}

	fetcher := fetch.NewClient(fetch.Config{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	})

	app := proxy.NewServer(logger, fetcher, codec.NewAdapter(), profile, limiter)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: app.Handler(),
		// Writes cover the whole transcode, so the write deadline is looser
		// than the read deadline.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s format=%s", cfg.Server.Addr, profile.Format)
		if profile.Format == domain.FormatJXL {
			logger.Printf("jxl encoder speed=%d", profile.JXLSpeed)
		}
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
