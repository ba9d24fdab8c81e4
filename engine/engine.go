package engine

import (
	"io"
	"log/slog"
	"time"

	"github.com/krisalay/storefront-cache/expiration"
	"github.com/krisalay/storefront-cache/types"
)

/*
CacheEngine is the policy layer of the cache.

It decides:
- when an entry is stale
- what happens to an entry when it is served or stored
- which clock the cache reads
- where events are reported (metrics, logs)

It does NOT store data, pick shards, lock, or decide eviction order.
*/
type CacheEngine struct {

	// Expiration decides when an entry is too old to serve.
	// If nil, entries never expire.
	Expiration expiration.Strategy

	// Metrics receives hit/miss/request/expire events.
	Metrics types.Metrics

	// Clock is read for every freshness check and write stamp.
	Clock types.Clock

	// Logger receives debug traces of loads and invalidations.
	Logger *slog.Logger
}

// Option customizes a CacheEngine.
type Option func(*CacheEngine)

func WithMetrics(m types.Metrics) Option {
	return func(e *CacheEngine) {
		if m != nil {
			e.Metrics = m
		}
	}
}

func WithClock(c types.Clock) Option {
	return func(e *CacheEngine) {
		if c != nil {
			e.Clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *CacheEngine) {
		if l != nil {
			e.Logger = l
		}
	}
}

/*
NewCacheEngine creates a CacheEngine.
Metrics, Clock and Logger always end up non-nil so the cache never checks them.
*/
func NewCacheEngine(exp expiration.Strategy, opts ...Option) *CacheEngine {
	e := &CacheEngine{
		Expiration: exp,
		Metrics:    types.NoopMetrics{},
		Clock:      types.SystemClock{},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current time.
func (e *CacheEngine) Now() time.Time {
	return e.Clock.Now()
}

// IsExpired reports whether ent must not be served now.
func (e *CacheEngine) IsExpired(ent *types.CacheEntry) bool {
	return e.Expiration != nil &&
		e.Expiration.IsExpired(ent, e.Now())
}

// OnRead is called every time the cache serves an entry.
func (e *CacheEngine) OnRead(key string, ent *types.CacheEntry) {
	e.Metrics.Hit(key)
	if e.Expiration != nil {
		e.Expiration.OnAccess(ent, e.Now())
	}
}

/*
OnWrite is called right before an entry is stored.
It stamps the fetch time and lets the expiration strategy fill a default TTL.
*/
func (e *CacheEngine) OnWrite(ent *types.CacheEntry) {
	now := e.Now()
	if e.Expiration != nil {
		e.Expiration.OnWrite(ent, now)
		return
	}
	ent.Timestamp = now
	ent.Touch(now)
}
