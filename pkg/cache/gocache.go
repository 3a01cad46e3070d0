package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// GoCache is the in-process backend, suitable for a single-node deployment.
type GoCache struct {
	c          *gocache.Cache
	defaultTTL time.Duration
}

func NewGoCache(defaultTTL time.Duration) *GoCache {
	return &GoCache{
		c:          gocache.New(defaultTTL, 2*defaultTTL),
		defaultTTL: defaultTTL,
	}
}

func (g *GoCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := g.c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (g *GoCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = g.defaultTTL
	}
	g.c.Set(key, value, ttl)
}

func (g *GoCache) Delete(_ context.Context, key string) {
	g.c.Delete(key)
}

func (g *GoCache) Close() error {
	g.c.Flush()
	return nil
}
