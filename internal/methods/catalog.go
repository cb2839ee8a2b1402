package methods

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/resilience"
	"github.com/noah-isme/backend-pos/internal/store"
	"github.com/noah-isme/backend-pos/internal/tender"
)

const cacheKey = "pos:payment_methods:v1"

// ErrUnavailable is returned when the method catalog cannot be served from
// cache or the database.
var ErrUnavailable = errors.New("methods: catalog unavailable")

// Lister loads enabled tender methods from persistent storage.
type Lister interface {
	ListEnabledMethods(ctx context.Context) ([]store.Method, error)
}

type cachedMethod struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// Catalog serves the enabled tender methods for the till, caching the listing
// in Redis and guarding database refreshes with a circuit breaker. A stale
// in-process copy is served when both tiers are down so an open till keeps
// working.
type Catalog struct {
	Store   Lister
	Redis   *redis.Client
	Breaker *resilience.Breaker
	TTL     time.Duration
	Logger  zerolog.Logger

	mu    sync.RWMutex
	stale []store.Method
}

// New constructs a catalog with the default cache TTL.
func New(lister Lister, rdb *redis.Client, breaker *resilience.Breaker) *Catalog {
	return &Catalog{
		Store:   lister,
		Redis:   rdb,
		Breaker: breaker,
		TTL:     5 * time.Minute,
	}
}

// Available returns the enabled tender methods in display order.
func (c *Catalog) Available(ctx context.Context) ([]store.Method, error) {
	if c == nil || c.Store == nil {
		return nil, errors.New("methods: catalog not configured")
	}

	if cached, ok := c.fromCache(ctx); ok {
		return cached, nil
	}

	if c.Breaker != nil && !c.Breaker.Allow() {
		if stale := c.staleCopy(); stale != nil {
			return stale, nil
		}
		return nil, ErrUnavailable
	}

	listed, err := c.Store.ListEnabledMethods(ctx)
	if c.Breaker != nil {
		c.Breaker.Report(err == nil)
	}
	if err != nil {
		c.Logger.Warn().Err(err).Msg("method_catalog_refresh_failed")
		if stale := c.staleCopy(); stale != nil {
			return stale, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.mu.Lock()
	c.stale = append([]store.Method(nil), listed...)
	c.mu.Unlock()
	c.toCache(ctx, listed)
	return listed, nil
}

// Lookup reports whether the given kind is currently enabled.
func (c *Catalog) Lookup(ctx context.Context, kind tender.MethodKind) (store.Method, bool, error) {
	listed, err := c.Available(ctx)
	if err != nil {
		return store.Method{}, false, err
	}
	for _, m := range listed {
		if m.Kind == kind {
			return m, true, nil
		}
	}
	return store.Method{}, false, nil
}

// Invalidate drops the cached listing, forcing the next read to hit the
// database.
func (c *Catalog) Invalidate(ctx context.Context) {
	if c == nil || c.Redis == nil {
		return
	}
	if err := c.Redis.Del(ctx, cacheKey).Err(); err != nil {
		c.Logger.Warn().Err(err).Msg("method_catalog_invalidate_failed")
	}
}

func (c *Catalog) fromCache(ctx context.Context) ([]store.Method, bool) {
	if c.Redis == nil {
		return nil, false
	}
	data, err := c.Redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.Logger.Warn().Err(err).Msg("method_catalog_cache_read_failed")
		}
		return nil, false
	}
	var entries []cachedMethod
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	out := make([]store.Method, 0, len(entries))
	for _, e := range entries {
		kind, err := tender.ParseMethod(e.Kind)
		if err != nil {
			continue
		}
		out = append(out, store.Method{Kind: kind, Label: e.Label})
	}
	return out, true
}

func (c *Catalog) toCache(ctx context.Context, listed []store.Method) {
	if c.Redis == nil {
		return
	}
	entries := make([]cachedMethod, 0, len(listed))
	for _, m := range listed {
		entries = append(entries, cachedMethod{Kind: string(m.Kind), Label: m.Label})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := c.Redis.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		c.Logger.Warn().Err(err).Msg("method_catalog_cache_write_failed")
	}
}

func (c *Catalog) staleCopy() []store.Method {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stale == nil {
		return nil
	}
	return append([]store.Method(nil), c.stale...)
}
