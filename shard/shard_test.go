package shard

import (
	"fmt"
	"sort"
	"testing"

	"github.com/krisalay/storefront-cache/eviction"
	"github.com/krisalay/storefront-cache/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCOWStore(t *testing.T) {
	s := NewCOWStore()

	s.Put("store", &types.CacheEntry{Key: "store", Value: 1})
	s.Put("banner", &types.CacheEntry{Key: "banner", Value: "url1"})
	s.Put("banner", &types.CacheEntry{Key: "banner", Value: "url2"})

	ent, ok := s.Get("banner")
	require.True(t, ok)
	assert.Equal(t, "url2", ent.Value)
	assert.EqualValues(t, 2, s.Size())

	keys := s.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"banner", "store"}, keys)

	s.Delete("store")
	s.Delete("missing")
	_, ok = s.Get("store")
	assert.False(t, ok)
	assert.EqualValues(t, 1, s.Size())

	s.Clear()
	assert.EqualValues(t, 0, s.Size())
	assert.Empty(t, s.Keys())
}

func TestCOWStoreSnapshotIsStable(t *testing.T) {
	s := NewCOWStore()
	s.Put("a", &types.CacheEntry{Key: "a"})

	snap := s.snapshot()
	s.Put("b", &types.CacheEntry{Key: "b"})

	assert.Len(t, snap, 1, "readers keep the map they loaded")
	assert.Len(t, s.snapshot(), 2)
}

func TestHashSelectorIsStable(t *testing.T) {
	shards := make([]*Shard, 4)
	for i := range shards {
		shards[i] = NewShard(eviction.NewEvictionPolicy(eviction.LRU))
	}

	sel := HashSelector{}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("product:%d", i)
		assert.Same(t, sel.Select(key, shards), sel.Select(key, shards))
	}
}
