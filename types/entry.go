package types

import (
	"sync/atomic"
	"time"
)

// CacheEntry is one cached platform response.
// Entries are shared by concurrent readers once stored; only the access time changes after that.
type CacheEntry struct {
	Key   string
	Value any

	// Timestamp is when the value was fetched from the platform.
	Timestamp time.Time

	// TTL is how long the value stays fresh after Timestamp. Zero means no TTL.
	TTL time.Duration

	// Generation is the invalidation generation the value was loaded under.
	Generation uint64

	// lastAccess is unix nanos of the latest read.
	lastAccess atomic.Int64
}

// Touch records a read at now. Safe for concurrent use.
func (e *CacheEntry) Touch(now time.Time) {
	e.lastAccess.Store(now.UnixNano())
}

// LastAccessedAt returns the time of the latest read, or the zero time if there was none.
func (e *CacheEntry) LastAccessedAt() time.Time {
	n := e.lastAccess.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Age returns how long ago the entry was fetched.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// Remaining returns the time left before the entry goes stale, or 0 if it already has.
func (e *CacheEntry) Remaining(now time.Time) time.Duration {
	if e.TTL <= 0 {
		return 0
	}
	d := e.TTL - e.Age(now)
	if d < 0 {
		return 0
	}
	return d
}
