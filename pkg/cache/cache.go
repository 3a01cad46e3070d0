package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/code-100-precent/echobridge/pkg/config"
)

// Cache is the common interface over the in-memory and redis backends.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

// New builds a cache from configuration.
func New(cfg *config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "memory":
		return NewGoCache(cfg.TTL), nil
	case "redis":
		return NewRedisCache(cfg)
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
