package eviction

/*
This file defines how the cache decides what to drop when a capacity bound is configured.
Platform responses are few and small, so the catalog cache runs unbounded by default;
a bound only matters for long-running processes that page through many review pages.
*/

/*
Policy is the set of rules an eviction algorithm must obey so a shard can drive it
without knowing how it works.
*/
type Policy interface {

	// OnGet is called whenever a key is served from the cache.
	OnGet(string)

	// OnPut is called whenever a key is stored.
	OnPut(string)

	// Remove is called when a key is invalidated or expires (not evicted).
	Remove(string)

	// Evict returns the key to drop, or "" when nothing is tracked.
	Evict() string

	// Reset forgets every tracked key.
	Reset()
}

// PolicyType identifies a supported eviction strategy.
type PolicyType string

const (
	// LRU (Least Recently Used): evicts the key that has not been served for the longest time.
	LRU PolicyType = "LRU"
)

// NewEvictionPolicy creates the policy for t.
func NewEvictionPolicy(t PolicyType) Policy {
	switch t {
	case LRU, "":
		return newLRU()
	default:
		panic("unknown eviction policy: " + string(t))
	}
}
