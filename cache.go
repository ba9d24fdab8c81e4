// Package cache is a read-through, TTL-expiring, request-coalescing cache in front of the
// storefront platform's read endpoints.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/krisalay/storefront-cache/engine"
	"github.com/krisalay/storefront-cache/eviction"
	"github.com/krisalay/storefront-cache/shard"
	"github.com/krisalay/storefront-cache/types"
	"golang.org/x/sync/singleflight"
)

/*
ShardedCache is the generic read-through core.
It connects shards (storage), the engine (expiration, clock, metrics), the optional eviction
bound and singleflight (at most one platform call in flight per key).

Invalidation is generation-tagged: a load remembers the epoch and the key's generation it
started under and only writes its result back if neither moved. Clear bumps the epoch,
Remove/RemovePrefix bump per-key generations. A response that arrives after an invalidation is
still handed to the callers that were waiting for it, but never repopulates the cache.
*/
type ShardedCache struct {
	shards   []*shard.Shard
	engine   *engine.CacheEngine
	selector shard.Selector

	// capacity bounds the total number of entries; 0 means unbounded.
	capacity int

	sf singleflight.Group

	// mu guards the generation and pending tables. Lock order: mu before any shard mutex.
	mu         sync.Mutex
	epoch      uint64
	gens       map[string]uint64
	pending    map[string]uint64
	nextFlight uint64
}

type genToken struct {
	epoch uint64
	gen   uint64
}

func NewShardedCache(
	shards int,
	capacity int,
	policy eviction.PolicyType,
	engine *engine.CacheEngine,
) *ShardedCache {
	if shards <= 0 {
		shards = 1
	}
	s := make([]*shard.Shard, shards)
	for i := range s {
		s[i] = shard.NewShard(eviction.NewEvictionPolicy(policy))
	}

	return &ShardedCache{
		shards:   s,
		engine:   engine,
		selector: shard.HashSelector{},
		capacity: capacity,
		gens:     make(map[string]uint64),
		pending:  make(map[string]uint64),
	}
}

// Engine returns the policy layer the cache was built with.
func (c *ShardedCache) Engine() *engine.CacheEngine {
	return c.engine
}

/*
Load returns the value for key, calling load on a miss.

BEHAVIOR:
---------
 1. A fresh entry is returned without calling load.
 2. If another caller is already loading key, this caller waits for that same result.
 3. Otherwise load runs once. Its value is stored with ttl when it reports cacheable and no
    invalidation happened meanwhile. The pending entry is dropped however the load settles.

The load runs detached from ctx so it always completes (and can populate the cache) even
when every waiter has given up; ctx only bounds how long this caller waits.
*/
func (c *ShardedCache) Load(ctx context.Context, key string, ttl time.Duration, load types.Loader) (any, error) {
	if ent, ok := c.lookup(key); ok {
		return ent.Value, nil
	}
	c.engine.Metrics.Miss(key)

	led := false
	ch := c.sf.DoChan(key, func() (any, error) {
		led = true
		return c.fetch(ctx, key, ttl, load)
	})

	select {
	case res := <-ch:
		if !led {
			c.engine.Metrics.Coalesced(key)
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *ShardedCache) fetch(ctx context.Context, key string, ttl time.Duration, load types.Loader) (any, error) {
	// A flight that settled between this caller's lookup and DoChan may have stored key.
	if v, ok := c.Peek(key); ok {
		return v, nil
	}

	tok, flight := c.begin(key)
	defer c.settle(key, flight)

	c.engine.Metrics.Request(key)
	c.engine.Logger.Debug("cache load", "key", key)

	value, cacheable, err := load(context.WithoutCancel(ctx))
	if err != nil {
		c.engine.Logger.Debug("cache load failed", "key", key, "error", err)
		return nil, err
	}
	if cacheable {
		c.storeIfCurrent(key, value, ttl, tok)
	}
	return value, nil
}

func (c *ShardedCache) begin(key string) (genToken, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextFlight++
	c.pending[key] = c.nextFlight
	return genToken{epoch: c.epoch, gen: c.gens[key]}, c.nextFlight
}

// settle removes the pending entry unless Clear already dropped it or a newer flight owns it.
// With no flight left for key its generation is no longer needed.
func (c *ShardedCache) settle(key string, flight uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[key] == flight {
		delete(c.pending, key)
		delete(c.gens, key)
	}
}

// invalidate makes a pending load of key stale. Callers hold c.mu.
// Generations are only kept while a load is in flight, so the table stays as small as pending.
func (c *ShardedCache) invalidate(key string) {
	if _, inFlight := c.pending[key]; inFlight {
		c.gens[key]++
		return
	}
	delete(c.gens, key)
}

func (c *ShardedCache) storeIfCurrent(key string, value any, ttl time.Duration, tok genToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok.epoch != c.epoch || tok.gen != c.gens[key] {
		c.engine.Logger.Debug("dropping stale load", "key", key)
		return
	}
	c.put(key, value, ttl, tok.epoch)
}

// lookup returns a fresh entry, dropping it if it went stale.
func (c *ShardedCache) lookup(key string) (*types.CacheEntry, bool) {
	sh := c.selector.Select(key, c.shards)
	ent, ok := sh.Store.Get(key)
	if !ok {
		return nil, false
	}
	if c.engine.IsExpired(ent) {
		c.engine.Metrics.Expire(key)
		c.dropExpired(sh, key, ent)
		return nil, false
	}

	c.engine.OnRead(key, ent)
	if c.capacity > 0 {
		sh.Mu.Lock()
		sh.Eviction.OnGet(key)
		sh.Mu.Unlock()
	}
	return ent, true
}

// dropExpired deletes key only if it still holds the stale entry (a reload may have replaced it).
func (c *ShardedCache) dropExpired(sh *shard.Shard, key string, stale *types.CacheEntry) {
	sh.Mu.Lock()
	defer sh.Mu.Unlock()
	if cur, ok := sh.Store.Get(key); ok && cur == stale {
		sh.Store.Delete(key)
		sh.Eviction.Remove(key)
	}
}

// put stores an entry; callers hold c.mu.
func (c *ShardedCache) put(key string, value any, ttl time.Duration, epoch uint64) {
	sh := c.selector.Select(key, c.shards)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	if c.capacity > 0 {
		perShard := c.capacity / len(c.shards)
		if perShard < 1 {
			perShard = 1
		}
		if _, exists := sh.Store.Get(key); !exists && sh.Store.Size() >= int64(perShard) {
			if evicted := sh.Eviction.Evict(); evicted != "" {
				sh.Store.Delete(evicted)
				c.engine.Metrics.Eviction(evicted)
			}
		}
	}

	ent := &types.CacheEntry{
		Key:        key,
		Value:      value,
		TTL:        ttl,
		Generation: epoch,
	}
	c.engine.OnWrite(ent)
	sh.Store.Put(key, ent)

	if c.capacity > 0 {
		sh.Eviction.OnPut(key)
	}
}

// Put stores a value directly, bypassing the platform.
func (c *ShardedCache) Put(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value, ttl, c.epoch)
}

// Peek returns a fresh cached value without loading or recording metrics.
func (c *ShardedCache) Peek(key string) (any, bool) {
	sh := c.selector.Select(key, c.shards)
	ent, ok := sh.Store.Get(key)
	if !ok || c.engine.IsExpired(ent) {
		return nil, false
	}
	return ent.Value, true
}

// Entry returns the stored entry for key, fresh or not.
func (c *ShardedCache) Entry(key string) (*types.CacheEntry, bool) {
	return c.selector.Select(key, c.shards).Store.Get(key)
}

/*
Remove invalidates one key.
A load of key that is in flight still answers its waiters but will not write back.
Removing a missing key is a no-op.
*/
func (c *ShardedCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidate(key)
	c.delete(key)
}

// RemovePrefix invalidates every cached or in-flight key starting with prefix and
// returns how many cached entries were dropped.
func (c *ShardedCache) RemovePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.pending {
		if strings.HasPrefix(key, prefix) {
			c.invalidate(key)
		}
	}

	removed := 0
	for _, sh := range c.shards {
		for _, key := range sh.Store.Keys() {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if _, inFlight := c.pending[key]; !inFlight {
				delete(c.gens, key)
			}
			c.delete(key)
			removed++
		}
	}
	return removed
}

func (c *ShardedCache) delete(key string) {
	sh := c.selector.Select(key, c.shards)
	sh.Mu.Lock()
	defer sh.Mu.Unlock()
	sh.Store.Delete(key)
	sh.Eviction.Remove(key)
}

/*
Clear drops every entry and stops tracking in-flight loads.
In-flight platform calls are not cancelled: their current waiters still get the result, the
next caller for the same key starts a fresh call, and the late result is not cached.
*/
func (c *ShardedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.gens = make(map[string]uint64)
	for key := range c.pending {
		c.sf.Forget(key)
	}
	c.pending = make(map[string]uint64)

	for _, sh := range c.shards {
		sh.Mu.Lock()
		sh.Store.Clear()
		sh.Eviction.Reset()
		sh.Mu.Unlock()
	}
}

// Keys returns the stored keys (including stale entries not yet dropped), sorted.
func (c *ShardedCache) Keys() []string {
	var keys []string
	for _, sh := range c.shards {
		keys = append(keys, sh.Store.Keys()...)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the number of stored entries.
func (c *ShardedCache) Size() int {
	var n int64
	for _, sh := range c.shards {
		n += sh.Store.Size()
	}
	return int(n)
}

// Pending returns how many keys have a tracked load in flight.
func (c *ShardedCache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

/*
TTL returns the remaining freshness of a key.

	> 0 : time left before the entry goes stale
	-1  : key exists but has no TTL
	-2  : key does not exist or is already stale
*/
func (c *ShardedCache) TTL(key string) time.Duration {
	ent, ok := c.Entry(key)
	if !ok || c.engine.IsExpired(ent) {
		return -2
	}
	if ent.TTL <= 0 {
		return -1
	}
	return ent.Remaining(c.engine.Now())
}
