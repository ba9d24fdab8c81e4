package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/krisalay/storefront-cache/engine"
	"github.com/krisalay/storefront-cache/eviction"
	"github.com/krisalay/storefront-cache/expiration"
	"github.com/krisalay/storefront-cache/metrics"
	"github.com/krisalay/storefront-cache/platform"
	"github.com/krisalay/storefront-cache/types"
	"golang.org/x/sync/errgroup"
)

/*
Catalog caches the four read endpoints of the platform: store, product, reviews page and banner.

BEHAVIOR (every read):
----------------------
 1. A fresh entry is returned without calling the platform.
 2. Concurrent callers of the same key share one platform call and get the same result.
 3. Only successful results are cached; failures are returned and retried on the next call.

A Catalog with no source answers platform.ErrUnavailable on every miss until Attach is called.
*/
type Catalog struct {
	cfg      Config
	cache    *ShardedCache
	counters *metrics.Counters
	logger   *slog.Logger

	mu     sync.RWMutex
	source platform.Catalog
}

type catalogOptions struct {
	clock  types.Clock
	logger *slog.Logger
}

// Option customizes a Catalog.
type Option func(*catalogOptions)

// WithClock replaces the wall clock used for TTL checks.
func WithClock(c types.Clock) Option {
	return func(o *catalogOptions) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *catalogOptions) { o.logger = l }
}

// NewCatalog builds a Catalog in front of source. source may be nil and attached later.
func NewCatalog(source platform.Catalog, cfg Config, opts ...Option) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	o := catalogOptions{
		clock:  types.SystemClock{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	counters := metrics.NewCounters()
	eng := engine.NewCacheEngine(
		&expiration.ExpireAfterWrite{},
		engine.WithMetrics(counters),
		engine.WithClock(o.clock),
		engine.WithLogger(o.logger),
	)

	return &Catalog{
		cfg:      cfg,
		cache:    NewShardedCache(cfg.Shards, cfg.MaxEntries, eviction.LRU, eng),
		counters: counters,
		logger:   o.logger,
		source:   source,
	}, nil
}

// Attach sets the platform the Catalog reads from.
func (c *Catalog) Attach(source platform.Catalog) {
	c.mu.Lock()
	c.source = source
	c.mu.Unlock()
}

func (c *Catalog) Config() Config { return c.cfg }

// TTL returns the remaining freshness of a cache key, with ShardedCache.TTL semantics.
func (c *Catalog) TTL(key string) time.Duration { return c.cache.TTL(key) }

func (c *Catalog) client(method string) (platform.Catalog, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.source == nil {
		return nil, fmt.Errorf("%s: %w", method, platform.ErrUnavailable)
	}
	return c.source, nil
}

func (c *Catalog) GetStore(ctx context.Context) (*platform.StoreResult, error) {
	v, err := c.cache.Load(ctx, StoreKey, c.cfg.StoreDataTTL, func(ctx context.Context) (any, bool, error) {
		src, err := c.client("getStore")
		if err != nil {
			return nil, false, err
		}
		res, err := src.GetStore(ctx)
		if err != nil {
			return nil, false, err
		}
		if res == nil {
			return nil, false, platform.Failed("getStore", "empty response")
		}
		return res, res.Success, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*platform.StoreResult), nil
}

/*
GetProduct returns a product by id or slug.

BEHAVIOR:
---------
If the direct lookup fails or answers success=false, the product is searched in the (cached)
store by ID or Slug. A match is cached as a successful result. No match, or a failing store,
yields {Success: false} with a nil error and nothing is cached.
*/
func (c *Catalog) GetProduct(ctx context.Context, idOrSlug string) (*platform.ProductResult, error) {
	v, err := c.cache.Load(ctx, ProductKey(idOrSlug), c.cfg.ProductDataTTL, func(ctx context.Context) (any, bool, error) {
		src, err := c.client("getProduct")
		if err != nil {
			return nil, false, err
		}
		res, err := src.GetProduct(ctx, idOrSlug)
		if err == nil && res != nil && res.Success && res.Data != nil {
			return res, true, nil
		}
		c.logger.Debug("product lookup falling back to store", "product", idOrSlug, "error", err)
		return c.productFromStore(ctx, idOrSlug)
	})
	if err != nil {
		return nil, err
	}
	return v.(*platform.ProductResult), nil
}

func (c *Catalog) productFromStore(ctx context.Context, idOrSlug string) (any, bool, error) {
	store, err := c.GetStore(ctx)
	if err != nil {
		c.logger.Warn("store fallback failed", "product", idOrSlug, "error", err)
		return &platform.ProductResult{Success: false, Message: fmt.Sprintf("product %q unavailable: %v", idOrSlug, err)}, false, nil
	}
	if !store.Success {
		return &platform.ProductResult{Success: false, Message: fmt.Sprintf("product %q unavailable: %s", idOrSlug, store.Message)}, false, nil
	}
	p, ok := store.Data.FindProduct(idOrSlug)
	if !ok {
		return &platform.ProductResult{Success: false, Message: fmt.Sprintf("product %q not found", idOrSlug)}, false, nil
	}
	return &platform.ProductResult{Success: true, Data: &p}, true, nil
}

// GetProductReviews returns one page of reviews. Pages below 1 mean page 1.
// Each page is cached on its own.
func (c *Catalog) GetProductReviews(ctx context.Context, productID string, page int) (*platform.ReviewsResult, error) {
	if page < 1 {
		page = 1
	}
	v, err := c.cache.Load(ctx, ReviewsKey(productID, page), c.cfg.ReviewsTTL, func(ctx context.Context) (any, bool, error) {
		src, err := c.client("getProductReviews")
		if err != nil {
			return nil, false, err
		}
		res, err := src.GetProductReviews(ctx, productID, page)
		if err != nil {
			return nil, false, err
		}
		if res == nil {
			return nil, false, platform.Failed("getProductReviews", "empty response")
		}
		return res, res.Success, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*platform.ReviewsResult), nil
}

// GetStoreBannerURL returns the banner URL, or "" when the store has none.
// Only non-empty URLs are cached.
func (c *Catalog) GetStoreBannerURL(ctx context.Context) (string, error) {
	v, err := c.cache.Load(ctx, BannerKey, c.cfg.BannerTTL, func(ctx context.Context) (any, bool, error) {
		src, err := c.client("getStoreBannerUrl")
		if err != nil {
			return nil, false, err
		}
		u, err := src.GetStoreBannerURL(ctx)
		if err != nil {
			return nil, false, err
		}
		return u, u != "", nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Catalog) ClearProduct(idOrSlug string) {
	c.cache.Remove(ProductKey(idOrSlug))
	c.logger.Debug("cache cleared", "key", ProductKey(idOrSlug))
}

// ClearProductReviews drops every cached page of productID.
func (c *Catalog) ClearProductReviews(productID string) {
	n := c.cache.RemovePrefix(ReviewsPrefix(productID))
	c.logger.Debug("cache cleared", "prefix", ReviewsPrefix(productID), "entries", n)
}

func (c *Catalog) ClearStore() {
	c.cache.Remove(StoreKey)
	c.logger.Debug("cache cleared", "key", StoreKey)
}

func (c *Catalog) ClearBanner() {
	c.cache.Remove(BannerKey)
	c.logger.Debug("cache cleared", "key", BannerKey)
}

/*
ClearAll drops every entry and forgets every in-flight call.
Calls already running are not cancelled; their waiters still get the result but it is not
cached, and the next caller starts a new call.
*/
func (c *Catalog) ClearAll() {
	size := c.cache.Size()
	c.cache.Clear()
	c.logger.Info("cache cleared", "entries", size)
}

// Stats is a snapshot of the cache for introspection.
type Stats struct {
	Size            int               `json:"size"`
	Keys            []string          `json:"keys"`
	RequestCount    uint64            `json:"requestCount"`
	PendingRequests int               `json:"pendingRequests"`
	Hits            uint64            `json:"hits"`
	Misses          uint64            `json:"misses"`
	Expired         uint64            `json:"expired"`
	Coalesced       uint64            `json:"coalesced"`
	Evictions       uint64            `json:"evictions"`
	Requests        map[string]uint64 `json:"requests"`
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	return metrics.Snapshot{Hits: s.Hits, Misses: s.Misses}.HitRatio()
}

// Stats reports the cache contents and counters. RequestCount counts actual platform calls
// made by the four cached reads; Requests breaks that down per resource.
func (c *Catalog) Stats() Stats {
	snap := c.counters.Snapshot()
	keys := c.cache.Keys()
	if keys == nil {
		keys = []string{}
	}
	return Stats{
		Size:            c.cache.Size(),
		Keys:            keys,
		RequestCount:    snap.Requests,
		PendingRequests: c.cache.Pending(),
		Hits:            snap.Hits,
		Misses:          snap.Misses,
		Expired:         snap.Expired,
		Coalesced:       snap.Coalesced,
		Evictions:       snap.Evictions,
		Requests:        snap.ByResource,
	}
}

/*
WarmCache pre-fetches the banner, and the store too when Config.WarmStore is set.
It never fails: errors are logged and the cache simply stays cold for that key.
*/
func (c *Catalog) WarmCache(ctx context.Context) {
	var g errgroup.Group

	g.Go(func() error {
		if _, err := c.GetStoreBannerURL(ctx); err != nil {
			c.logger.Warn("warming banner failed", "error", err)
		}
		return nil
	})
	if c.cfg.WarmStore {
		g.Go(func() error {
			if _, err := c.GetStore(ctx); err != nil {
				c.logger.Warn("warming store failed", "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	c.logger.Debug("cache warmed", "size", c.cache.Size())
}
