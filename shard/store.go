package shard

import (
	"sync/atomic"

	"github.com/krisalay/storefront-cache/types"
)

/*
This file defines how entries are stored inside a shard.
Reads vastly outnumber writes (a catalog is fetched once per TTL and read on every page),
so the store is copy-on-write: readers load an immutable map snapshot without locks,
writers build a new map and swap it in. Writers must hold the shard mutex.
*/

// ShardStore is the storage used by a shard.
type ShardStore interface {
	Get(string) (*types.CacheEntry, bool)
	Put(string, *types.CacheEntry)
	Delete(string)

	// Keys returns a snapshot of the stored keys, in no particular order.
	Keys() []string

	// Clear drops every entry.
	Clear()

	Size() int64
}

type cowStore struct {
	data atomic.Value // map[string]*types.CacheEntry
	size atomic.Int64
}

func NewCOWStore() *cowStore {
	s := &cowStore{}
	s.data.Store(make(map[string]*types.CacheEntry))
	return s
}

func (s *cowStore) snapshot() map[string]*types.CacheEntry {
	return s.data.Load().(map[string]*types.CacheEntry)
}

func (s *cowStore) Get(key string) (*types.CacheEntry, bool) {
	ent, ok := s.snapshot()[key]
	return ent, ok
}

// Put copies the current map, adds or replaces key and swaps the copy in.
func (s *cowStore) Put(key string, ent *types.CacheEntry) {
	old := s.snapshot()
	n := make(map[string]*types.CacheEntry, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[key] = ent
	s.data.Store(n)
	s.size.Store(int64(len(n)))
}

func (s *cowStore) Delete(key string) {
	old := s.snapshot()
	if _, ok := old[key]; !ok {
		return
	}
	n := make(map[string]*types.CacheEntry, len(old))
	for k, v := range old {
		if k != key {
			n[k] = v
		}
	}
	s.data.Store(n)
	s.size.Store(int64(len(n)))
}

func (s *cowStore) Keys() []string {
	m := s.snapshot()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func (s *cowStore) Clear() {
	s.data.Store(make(map[string]*types.CacheEntry))
	s.size.Store(0)
}

func (s *cowStore) Size() int64 {
	return s.size.Load()
}
