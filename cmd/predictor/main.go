// Command predictor serves bike-rental demand predictions over HTTP.
//
// The predictor loads one regressor per variant at startup, either a JSON
// model artifact or a remote BYOM endpoint, and answers:
//   - POST /predictions/daily - daily rentals from a JSON record
//   - POST /predictions/hourly - hourly rentals from a JSON record
//   - POST /predictions/document - rentals from a plain-text document
//   - GET /predictions/history - the caller's recent predictions
//   - GET /healthz, GET /readyz - health checks
//   - GET /metrics - Prometheus metrics endpoint
//
// When GRPC_LISTEN is set, a gRPC server exposes the standard health service
// as well.
//
// Usage:
//
//	predictor \
//	  --daily-model-path=/models/daily.json \
//	  --hourly-model-path=/models/hourly.json \
//	  --storage=redis --redis-addr=redis:6379 \
//	  --jwt-secret=change-me
//
// Environment variables:
//
//	LISTEN            - HTTP listen address (default: :8080)
//	GRPC_LISTEN       - gRPC health listen address (default: disabled)
//	DAILY_MODEL_PATH  - Daily model artifact
//	HOURLY_MODEL_PATH - Hourly model artifact
//	DAILY_MODEL_URL   - Daily BYOM endpoint (overrides the artifact)
//	HOURLY_MODEL_URL  - Hourly BYOM endpoint (overrides the artifact)
//	WEATHER_PENALTY   - Apply the weather penalty (default: true)
//	STORAGE           - Prediction log: memory, redis, postgres (default: memory)
//	JWT_SECRET        - Bearer token secret (history disabled when empty)
//	LOG_LEVEL         - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT        - Logging format: text, json (default: text)
//
// See the config package for the complete list.
package main

import (
	"context"
	cryptotls "crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HatiCode/ridewise/cmd/predictor/config"
	"github.com/HatiCode/ridewise/cmd/predictor/logger"
	"github.com/HatiCode/ridewise/cmd/predictor/metrics"
	"github.com/HatiCode/ridewise/cmd/predictor/models"
	"github.com/HatiCode/ridewise/cmd/predictor/router"
	"github.com/HatiCode/ridewise/cmd/predictor/store"
	"github.com/HatiCode/ridewise/pkg/auth"
	"github.com/HatiCode/ridewise/pkg/features"
	"github.com/HatiCode/ridewise/pkg/httpx"
	"github.com/HatiCode/ridewise/pkg/prediction"
	"github.com/HatiCode/ridewise/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}

	log := logger.New(cfg)
	slog.SetDefault(log)

	log.Info("starting ridewise predictor",
		"version", version,
		"listen", cfg.Listen,
		"storage", cfg.Storage,
		"weather_penalty", cfg.WeatherPenalty,
	)

	m := metrics.New(nil)

	daily, hourly, err := models.NewAll(cfg, log)
	if err != nil {
		log.Error("failed to load models", "error", err)
		os.Exit(1)
	}
	m.SetModel(string(features.Daily), daily.Name())
	m.SetModel(string(features.Hourly), hourly.Name())

	svc, err := prediction.New(prediction.Config{
		Daily:            daily,
		Hourly:           hourly,
		Logger:           log,
		Observer:         m,
		NoWeatherPenalty: !cfg.WeatherPenalty,
	})
	if err != nil {
		log.Error("invalid model configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	predictionLog, closer, err := store.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create prediction log", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Error("failed to close prediction log", "error", err)
		}
	}()

	var authManager *auth.Manager
	if cfg.JWTSecret != "" {
		if authManager, err = auth.NewManager(cfg.JWTSecret, 0); err != nil {
			log.Error("failed to initialize token verification", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("JWT_SECRET not set, prediction history is disabled")
	}

	handler := router.SetupRoutes(router.Options{
		Service:        svc,
		Store:          predictionLog,
		Auth:           authManager,
		Logger:         log,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})
	httpServer := httpx.NewServer(cfg.Listen, handler, log)

	serverErr := make(chan error, 2)

	tlsCfg := cfg.TLS()
	if tlsCfg.Enabled {
		serverTLS, err := tls.NewServerTLSConfig(tlsCfg)
		if err != nil {
			log.Error("failed to load TLS configuration", "error", err)
			os.Exit(1)
		}
		httpServer.SetTLSConfig(serverTLS)
		log.Info("TLS enabled", "mutual_tls", tlsCfg.MutualTLS())
		go func() { serverErr <- httpServer.StartTLS() }()
	} else {
		go func() { serverErr <- httpServer.Start() }()
	}

	var stopGRPC func()
	if cfg.GRPCListen != "" {
		stopGRPC, err = startGRPC(cfg, svc.Ready(), log, serverErr)
		if err != nil {
			log.Error("failed to start gRPC server", "error", err)
			os.Exit(1)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	log.Info("shutting down")
	cancel()

	if stopGRPC != nil {
		stopGRPC()
	}

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}

// startGRPC serves the gRPC health service on cfg.GRPCListen. Serve errors
// are sent on errCh. The returned func stops the server gracefully.
func startGRPC(cfg *config.Config, ready map[features.Variant]bool, log *slog.Logger, errCh chan<- error) (func(), error) {
	tlsCfg := cfg.TLS()
	var serverTLS *cryptotls.Config
	if tlsCfg.Enabled {
		c, err := tls.NewServerTLSConfig(tlsCfg)
		if err != nil {
			return nil, err
		}
		serverTLS = c
	}

	srv, _ := newGRPCServer(ready, serverTLS)

	lis, err := net.Listen("tcp", cfg.GRPCListen)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.GRPCListen, err)
	}

	go func() {
		log.Info("grpc health server listening", "addr", cfg.GRPCListen)
		if err := srv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server failed: %w", err)
		}
	}()

	return func() {
		log.Info("shutting down grpc server")
		srv.GracefulStop()
	}, nil
}
