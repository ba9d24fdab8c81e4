package expiration

import (
	"time"

	"github.com/krisalay/storefront-cache/types"
)

/*
ExpireAfterWrite implements a fixed time-to-live measured from when the value was fetched.
Reads never extend the lifetime: an entry fetched at t with TTL d is stale once
now - t > d, however often it is read in between.

DefaultTTL applies to entries written without their own TTL.
*/
type ExpireAfterWrite struct {
	DefaultTTL time.Duration
}

// IsExpired reports whether now - Timestamp > TTL. Entries without a TTL never expire.
func (e *ExpireAfterWrite) IsExpired(ent *types.CacheEntry, now time.Time) bool {
	if ent.TTL <= 0 {
		return false
	}
	return now.Sub(ent.Timestamp) > ent.TTL
}

// OnAccess records the read; it does not touch the TTL.
func (e *ExpireAfterWrite) OnAccess(ent *types.CacheEntry, now time.Time) {
	ent.Touch(now)
}

/*
OnWrite stamps the entry with the fetch time.
An explicit TTL set by the caller is kept; DefaultTTL only fills a zero TTL.
*/
func (e *ExpireAfterWrite) OnWrite(ent *types.CacheEntry, now time.Time) {
	ent.Timestamp = now
	ent.Touch(now)
	if ent.TTL <= 0 {
		ent.TTL = e.DefaultTTL
	}
}
