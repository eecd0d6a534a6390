package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/homelet-labs/homelet-back/internal/config"
)

const keyPrefix = "view:"

type (
	// ViewCache holds rendered view payloads keyed by page path. Write
	// operations in the service layer invalidate the paths they affect.
	ViewCache interface {
		Get(ctx context.Context, path string, dest interface{}) (bool, error)
		Set(ctx context.Context, path string, value interface{}, ttl time.Duration) error
		Invalidate(ctx context.Context, paths ...string) error
	}

	RedisCache struct {
		client *redis.Client
		logger *zap.SugaredLogger
	}
)

func NewViewCache(lc fx.Lifecycle, cfg *config.Config, logger *zap.SugaredLogger) ViewCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing redis client.")
			return client.Close()
		},
	})

	return &RedisCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, path string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+path).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "cache get")
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, errors.Wrap(err, "cache decode")
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, path string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "cache encode")
	}
	if err := c.client.Set(ctx, keyPrefix+path, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "cache set")
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	keys := make([]string, len(paths))
	for i := range paths {
		keys[i] = keyPrefix + paths[i]
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "cache invalidate")
	}
	c.logger.Debugw("invalidated cached views", "paths", paths)
	return nil
}
