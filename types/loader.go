package types

import "context"

/*
Loader fetches one value from the platform when the cache misses.

	1. Cache checks memory → key not found or stale
	2. Cache calls the Loader (at most once per key at a time)
	3. Loader calls the platform
	4. Cache stores the value if the Loader says it is cacheable
	5. Every waiting caller receives the same value

cacheable=false returns the value to the callers without storing it.
This is how failed platform results ({success:false}) are retried on the next call.
*/
type Loader func(ctx context.Context) (value any, cacheable bool, err error)
