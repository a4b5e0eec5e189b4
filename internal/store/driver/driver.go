// Package driver opens the configured settings store.
package driver

import (
	"context"
	"fmt"

	"github.com/nulzo/chat-registry/internal/config"
	"github.com/nulzo/chat-registry/internal/store"
	"github.com/nulzo/chat-registry/internal/store/memory"
	"github.com/nulzo/chat-registry/internal/store/redis"
	"github.com/nulzo/chat-registry/internal/store/sqlite"
	"go.uber.org/zap"
)

func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Settings.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		s, err := sqlite.Open(cfg.Settings.DSN, sqlite.Options{PollInterval: cfg.Settings.PollInterval}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown settings driver %q", cfg.Settings.Driver)
	}
}
