// Package metrics counts cache events.
package metrics

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/krisalay/storefront-cache/types"
)

// Counters is a concurrency-safe types.Metrics that keeps running totals,
// with platform requests also broken down by resource (the key up to its first colon).
type Counters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	requests  atomic.Uint64
	coalesced atomic.Uint64
	expired   atomic.Uint64
	evictions atomic.Uint64

	mu         sync.Mutex
	byResource map[string]uint64
}

var _ types.Metrics = &Counters{} // Compile-time check

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Hits       uint64            `json:"hits"`
	Misses     uint64            `json:"misses"`
	Requests   uint64            `json:"requests"`
	Coalesced  uint64            `json:"coalesced"`
	Expired    uint64            `json:"expired"`
	Evictions  uint64            `json:"evictions"`
	ByResource map[string]uint64 `json:"by_resource"`
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Snapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func NewCounters() *Counters {
	return &Counters{byResource: make(map[string]uint64)}
}

// Resource returns the resource part of a cache key ("reviews:p1:2" → "reviews").
func Resource(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

func (c *Counters) Hit(string)       { c.hits.Add(1) }
func (c *Counters) Miss(string)      { c.misses.Add(1) }
func (c *Counters) Coalesced(string) { c.coalesced.Add(1) }
func (c *Counters) Expire(string)    { c.expired.Add(1) }
func (c *Counters) Eviction(string)  { c.evictions.Add(1) }

func (c *Counters) Request(key string) {
	c.requests.Add(1)
	c.mu.Lock()
	c.byResource[Resource(key)]++
	c.mu.Unlock()
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	by := make(map[string]uint64, len(c.byResource))
	for k, v := range c.byResource {
		by[k] = v
	}
	c.mu.Unlock()

	return Snapshot{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Requests:   c.requests.Load(),
		Coalesced:  c.coalesced.Load(),
		Expired:    c.expired.Load(),
		Evictions:  c.evictions.Load(),
		ByResource: by,
	}
}
