package shard

import (
	"sync"

	"github.com/krisalay/storefront-cache/eviction"
)

/*
Shard is one independent slice of the cache. Each shard has:
- its own copy-on-write store (lock-free reads)
- its own eviction bookkeeping
- its own write mutex

Splitting keys over shards keeps concurrent loads of different keys from
contending on a single lock.
*/
type Shard struct {

	// Store holds key → entry for this shard.
	Store ShardStore

	// Eviction tracks usage order for the optional capacity bound.
	Eviction eviction.Policy

	// Mu serializes writes (Put, Delete, eviction bookkeeping). Reads of Store do not take it.
	Mu sync.Mutex
}

func NewShard(ev eviction.Policy) *Shard {
	return &Shard{
		Store:    NewCOWStore(),
		Eviction: ev,
	}
}
