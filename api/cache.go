// Package api holds the contract presenters use to read the storefront catalog.
package api

import (
	"context"
	"time"

	cache "github.com/krisalay/storefront-cache"
	"github.com/krisalay/storefront-cache/platform"
)

/*
Catalog defines the PUBLIC API of the storefront cache.
Presenters (HTTP handlers, MCP tools, the CLI) depend on this interface only; sharding,
expiration, request coalescing and invalidation stay hidden behind it.
*/
type Catalog interface {

	/*
		GetStore returns the store with its products.

		BEHAVIOR:
		---------
		1. If a fresh entry exists:
		   - Return it without calling the platform (cache hit)

		2. If another caller is already fetching it:
		   - Wait for that call and return the same result

		3. Otherwise:
		   - Call the platform once
		   - Cache the result only if it reports success
	*/
	GetStore(ctx context.Context) (*platform.StoreResult, error)

	/*
		GetProduct returns one product by id or slug.

		FALLBACK:
		---------
		- If the direct lookup fails, the product is searched in the cached store
		- If nothing matches, the result has Success=false and a nil error
	*/
	GetProduct(ctx context.Context, idOrSlug string) (*platform.ProductResult, error)

	// GetProductReviews returns one page of reviews; every page is cached on its own.
	GetProductReviews(ctx context.Context, productID string, page int) (*platform.ReviewsResult, error)

	// GetStoreBannerURL returns "" when the store has no banner.
	GetStoreBannerURL(ctx context.Context) (string, error)

	/*
		Clear* invalidate cached data.

		BEHAVIOR:
		---------
		- Drop the matching entries immediately
		- A platform call already running for them still answers its callers,
		  but its result is not cached

		These operations are idempotent:
		- Clearing a key that is not cached is safe
	*/
	ClearProduct(idOrSlug string)
	ClearProductReviews(productID string)
	ClearStore()
	ClearBanner()
	ClearAll()

	// Stats is a snapshot for debugging and monitoring.
	Stats() cache.Stats

	/*
		TTL returns the remaining freshness of a key.

		RETURN VALUES:
		--------------
		> 0   : Duration remaining before the entry goes stale
		-1    : Key exists but has no TTL
		-2    : Key does not exist or is already stale
	*/
	TTL(key string) time.Duration

	// WarmCache pre-fetches what the first page view needs. It never fails.
	WarmCache(ctx context.Context)
}

var _ Catalog = &cache.Catalog{} // Compile-time check
