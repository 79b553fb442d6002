// Package store builds the prediction log backend selected in the config.
package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/HatiCode/ridewise/cmd/predictor/config"
	"github.com/HatiCode/ridewise/pkg/storage"
)

// New returns the configured prediction log and a closer releasing its
// resources.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Storage {
	case "redis":
		logger.Info("using Redis prediction log",
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
			"ttl", cfg.RedisTTL,
		)
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		return s, s, nil

	case "postgres":
		logger.Info("using Postgres prediction log")
		s, err := storage.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		return s, s, nil

	case "memory", "":
		logger.Info("using in-memory prediction log", "ttl", cfg.MemoryTTL)
		if cfg.MemoryTTL <= 0 {
			s := storage.NewMemoryStore()
			return s, stopper{s}, nil
		}
		s := storage.NewMemoryStoreWithTTL(cfg.MemoryTTL, min(cfg.MemoryTTL, time.Minute))
		return s, stopper{s}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

type stopper struct{ s *storage.MemoryStore }

func (c stopper) Close() error {
	c.s.Stop()
	return nil
}
