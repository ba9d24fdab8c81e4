// This file defines how cache entries expire over time.

package expiration

import (
	"time"

	"github.com/krisalay/storefront-cache/types"
)

/*
Strategy decides when an entry is too old to serve.
The cache never hard-codes expiration; the engine asks the strategy.
*/
type Strategy interface {

	// IsExpired reports whether the entry must not be served at now.
	IsExpired(*types.CacheEntry, time.Time) bool

	// OnAccess is called whenever an entry is served.
	OnAccess(*types.CacheEntry, time.Time)

	// OnWrite is called when an entry is stored.
	OnWrite(*types.CacheEntry, time.Time)
}
