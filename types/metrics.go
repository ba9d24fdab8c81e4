package types

// This file defines how the cache reports what it is doing.

/*
Metrics is called by the cache for every event in an entry's lifecycle.
Keys are passed so implementations can group events by resource
(store, product, reviews, banner).
*/
type Metrics interface {

	// Hit is called when a fresh entry is returned without calling the platform.
	Hit(key string)

	// Miss is called when the key is absent or stale and a load is needed.
	Miss(key string)

	// Request is called once per actual platform call.
	Request(key string)

	// Coalesced is called when a caller joined a load that another caller started.
	Coalesced(key string)

	// Expire is called when a stale entry is dropped on access.
	Expire(key string)

	// Eviction is called when a key is dropped because the cache is full.
	Eviction(key string)
}

/*
NoopMetrics ignores every event.
It is the default so the cache never needs nil checks around metrics.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit(string)       {}
func (NoopMetrics) Miss(string)      {}
func (NoopMetrics) Request(string)   {}
func (NoopMetrics) Coalesced(string) {}
func (NoopMetrics) Expire(string)    {}
func (NoopMetrics) Eviction(string)  {}
