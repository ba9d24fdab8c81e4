package shard

import "hash/fnv"

// Selector decides which shard owns a key.
type Selector interface {
	Select(string, []*Shard) *Shard
}

// HashSelector maps a key to a shard by FNV-1a hash modulo the shard count.
// The mapping is stable, so a key always lands on the same shard.
type HashSelector struct{}

func hash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func (HashSelector) Select(key string, shards []*Shard) *Shard {
	return shards[hash(key)%uint32(len(shards))]
}
