package cache_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	cache "github.com/krisalay/storefront-cache"
	"github.com/krisalay/storefront-cache/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a scripted platform.Catalog that counts calls.
type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int

	store      *platform.StoreResult
	storeErr   error
	storeGate  chan struct{} // GetStore blocks on it when set
	products   map[string]*platform.ProductResult
	productErr error
	reviews    map[string][]platform.Review
	banner     string
	bannerErr  error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: make(map[string]int),
		store: &platform.StoreResult{Success: true, Data: &platform.Store{
			ID:       "demo",
			Currency: "USD",
			Products: []platform.Product{
				{ID: "p1", Slug: "trail-hoodie", Name: "Trail Hoodie"},
				{ID: "p2", Slug: "canvas-tote", Name: "Canvas Tote"},
			},
		}},
		products: map[string]*platform.ProductResult{
			"p1": {Success: true, Data: &platform.Product{ID: "p1", Slug: "trail-hoodie"}},
		},
		reviews: map[string][]platform.Review{
			"p1": {{ID: "r1", ProductID: "p1", Rating: 5}},
			"p2": {{ID: "r2", ProductID: "p2", Rating: 4}},
		},
		banner: "url1",
	}
}

func (f *fakeSource) count(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *fakeSource) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *fakeSource) GetStore(ctx context.Context) (*platform.StoreResult, error) {
	f.count("getStore")
	f.mu.Lock()
	gate, res, err := f.storeGate, f.store, f.storeErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	cp := *res
	return &cp, nil
}

func (f *fakeSource) GetProduct(ctx context.Context, idOrSlug string) (*platform.ProductResult, error) {
	f.count("getProduct")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productErr != nil {
		return nil, f.productErr
	}
	if res, ok := f.products[idOrSlug]; ok {
		cp := *res
		return &cp, nil
	}
	return &platform.ProductResult{Success: false, Message: "product not found"}, nil
}

func (f *fakeSource) GetProductReviews(ctx context.Context, productID string, page int) (*platform.ReviewsResult, error) {
	f.count("getProductReviews")
	f.mu.Lock()
	defer f.mu.Unlock()
	rs, ok := f.reviews[productID]
	if !ok {
		return &platform.ReviewsResult{Success: false, Message: "product not found"}, nil
	}
	return &platform.ReviewsResult{Success: true, Data: rs, Pages: 2}, nil
}

func (f *fakeSource) GetStoreBannerURL(ctx context.Context) (string, error) {
	f.count("getStoreBannerUrl")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banner, f.bannerErr
}

func newTestCatalog(t *testing.T, src platform.Catalog, mutate ...func(*cache.Config)) (*cache.Catalog, *fakeClock) {
	t.Helper()
	cfg := cache.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	clock := newFakeClock()
	c, err := cache.NewCatalog(src, cfg, cache.WithClock(clock))
	require.NoError(t, err)
	return c, clock
}

//
// ================= READ-THROUGH =================
//

func TestCatalog_EachGetterCallsOnceWithinTTL(t *testing.T) {
	src := newFakeSource()
	c, clock := newTestCatalog(t, src)
	ctx := context.Background()

	for range 2 {
		_, err := c.GetStore(ctx)
		require.NoError(t, err)
		_, err = c.GetProduct(ctx, "p1")
		require.NoError(t, err)
		_, err = c.GetProductReviews(ctx, "p1", 1)
		require.NoError(t, err)
		_, err = c.GetStoreBannerURL(ctx)
		require.NoError(t, err)
		clock.Advance(30 * time.Second)
	}

	for _, m := range []string{"getStore", "getProduct", "getProductReviews", "getStoreBannerUrl"} {
		assert.Equal(t, 1, src.Calls(m), m)
	}

	stats := c.Stats()
	assert.Equal(t, uint64(4), stats.RequestCount)
	assert.Equal(t, map[string]uint64{"store": 1, "product": 1, "reviews": 1, "banner": 1}, stats.Requests)
	assert.Equal(t, 4, stats.Size)
	assert.Equal(t, []string{"banner", "product:p1", "reviews:p1:1", "store"}, stats.Keys)
	assert.Equal(t, uint64(4), stats.Hits)
	assert.Equal(t, 0.5, stats.HitRatio())
}

func TestCatalog_RefetchAfterTTL(t *testing.T) {
	src := newFakeSource()
	c, clock := newTestCatalog(t, src)
	ctx := context.Background()

	first, err := c.GetStore(ctx)
	require.NoError(t, err)

	clock.Advance(c.Config().StoreDataTTL + time.Millisecond)
	second, err := c.GetStore(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, src.Calls("getStore"))
	assert.NotSame(t, first, second)
	assert.Equal(t, c.Config().StoreDataTTL, c.TTL(cache.StoreKey), "entry was re-stamped")
}

func TestCatalog_ClearAllForcesFreshCall(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCatalog(t, src)
	ctx := context.Background()

	_, _ = c.GetStore(ctx)
	_, _ = c.GetStoreBannerURL(ctx)
	c.ClearAll()
	assert.Equal(t, 0, c.Stats().Size)

	_, _ = c.GetStore(ctx)
	_, _ = c.GetStoreBannerURL(ctx)
	assert.Equal(t, 2, src.Calls("getStore"))
	assert.Equal(t, 2, src.Calls("getStoreBannerUrl"))
}

func TestCatalog_ConcurrentGetStoreCoalesces(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	src.set(func(f *fakeSource) { f.storeGate = gate })
	c, _ := newTestCatalog(t, src)

	const callers = 2
	results := make([]*platform.StoreResult, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.GetStore(context.Background())
			assert.NoError(t, err)
			results[i] = res
		}()
	}

	require.Eventually(t, func() bool { return c.Stats().PendingRequests == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Same(t, results[0], results[1])
	assert.Equal(t, uint64(1), c.Stats().RequestCount)
	assert.Equal(t, 1, src.Calls("getStore"))
	assert.Equal(t, 0, c.Stats().PendingRequests)
}

//
// ================= FAILURES =================
//

func TestCatalog_FailuresAreNotCached(t *testing.T) {
	src := newFakeSource()
	boom := platform.Failed("getStore", "boom")
	src.set(func(f *fakeSource) { f.storeErr = boom })
	c, _ := newTestCatalog(t, src)
	ctx := context.Background()

	_, err := c.GetStore(ctx)
	assert.ErrorIs(t, err, platform.ErrCallFailed)

	src.set(func(f *fakeSource) { f.storeErr = nil })
	res, err := c.GetStore(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, src.Calls("getStore"))
}

func TestCatalog_UnsuccessfulResultIsReturnedNotCached(t *testing.T) {
	src := newFakeSource()
	src.set(func(f *fakeSource) { f.store = &platform.StoreResult{Success: false, Message: "maintenance"} })
	c, _ := newTestCatalog(t, src)
	ctx := context.Background()

	res, err := c.GetStore(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "maintenance", res.Message)

	_, _ = c.GetStore(ctx)
	assert.Equal(t, 2, src.Calls("getStore"))
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCatalog_NoSourceIsUnavailable(t *testing.T) {
	c, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	_, err := c.GetStore(ctx)
	assert.ErrorIs(t, err, platform.ErrUnavailable)
	_, err = c.GetProduct(ctx, "p1")
	assert.ErrorIs(t, err, platform.ErrUnavailable)
	_, err = c.GetProductReviews(ctx, "p1", 1)
	assert.ErrorIs(t, err, platform.ErrUnavailable)
	_, err = c.GetStoreBannerURL(ctx)
	assert.ErrorIs(t, err, platform.ErrUnavailable)

	src := newFakeSource()
	c.Attach(src)
	res, err := c.GetStore(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

//
// ================= PRODUCT FALLBACK =================
//

func TestCatalog_ProductFallbackBySlug(t *testing.T) {
	src := newFakeSource()
	src.set(func(f *fakeSource) { f.productErr = platform.ErrUnavailable })
	c, _ := newTestCatalog(t, src)
	ctx := context.Background()

	res, err := c.GetProduct(ctx, "canvas-tote")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "p2", res.Data.ID)

	// The synthesized result is cached.
	_, _ = c.GetProduct(ctx, "canvas-tote")
	assert.Equal(t, 1, src.Calls("getProduct"))
	assert.Equal(t, 1, src.Calls("getStore"))
}

func TestCatalog_ProductFallbackOnUnsuccessful(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCatalog(t, src)

	// p2 is not known to the direct endpoint but is in the store.
	res, err := c.GetProduct(context.Background(), "p2")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "canvas-tote", res.Data.Slug)
}

func TestCatalog_ProductNotFoundIsNotCached(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCatalog(t, src)
	ctx := context.Background()

	res, err := c.GetProduct(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "not found")

	_, _ = c.GetProduct(ctx, "ghost")
	assert.Equal(t, 2, src.Calls("getProduct"))
	assert.Equal(t, 1, src.Calls("getStore"), "store stays cached")
}

func TestCatalog_ProductFallbackStoreFails(t *testing.T) {
	src := newFakeSource()
	src.set(func(f *fakeSource) {
		f.productErr = errors.New("down")
		f.storeErr = platform.Failed("getStore", "down")
	})
	c, _ := newTestCatalog(t, src)

	res, err := c.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, c.Stats().Size)
}

//
// ================= REVIEWS & BANNER =================
//

func TestCatalog_ReviewPagesAreIndependent(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCatalog(t, src)
	ctx := context.Background()

	_, _ = c.GetProductReviews(ctx, "p1", 0) // normalized to page 1
	_, _ = c.GetProductReviews(ctx, "p1", 1)
	_, _ = c.GetProductReviews(ctx, "p1", 2)
	_, _ = c.GetProductReviews(ctx, "p2", 1)

	assert.Equal(t, 3, src.Calls("getProductReviews"))
	assert.Equal(t, []string{"reviews:p1:1", "reviews:p1:2", "reviews:p2:1"}, c.Stats().Keys)
}

func TestCatalog_ClearProductReviews(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCatalog(t, src)
	ctx := context.Background()

	_, _ = c.GetProductReviews(ctx, "p1", 1)
	_, _ = c.GetProductReviews(ctx, "p1", 2)
	_, _ = c.GetProductReviews(ctx, "p2", 1)

	c.ClearProductReviews("p1")
	assert.Equal(t, []string{"reviews:p2:1"}, c.Stats().Keys)
}

func TestCatalog_BannerTTLScenario(t *testing.T) {
	src := newFakeSource()
	c, clock := newTestCatalog(t, src, func(cfg *cache.Config) { cfg.BannerTTL = time.Second })
	ctx := context.Background()

	u, err := c.GetStoreBannerURL(ctx) // t=0
	require.NoError(t, err)
	assert.Equal(t, "url1", u)

	clock.Advance(500 * time.Millisecond) // t=500
	src.set(func(f *fakeSource) { f.banner = "url2" })
	u, _ = c.GetStoreBannerURL(ctx)
	assert.Equal(t, "url1", u)
	assert.Equal(t, 1, src.Calls("getStoreBannerUrl"))

	clock.Advance(time.Second) // t=1500
	u, _ = c.GetStoreBannerURL(ctx)
	assert.Equal(t, "url2", u)
	assert.Equal(t, 2, src.Calls("getStoreBannerUrl"))
}

func TestCatalog_EmptyBannerIsNotCached(t *testing.T) {
	src := newFakeSource()
	src.set(func(f *fakeSource) { f.banner = "" })
	c, _ := newTestCatalog(t, src)
	ctx := context.Background()

	u, err := c.GetStoreBannerURL(ctx)
	require.NoError(t, err)
	assert.Empty(t, u)
	_, _ = c.GetStoreBannerURL(ctx)
	assert.Equal(t, 2, src.Calls("getStoreBannerUrl"))
}

//
// ================= INVALIDATION =================
//

func TestCatalog_ClearSingleResources(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCatalog(t, src)
	ctx := context.Background()

	_, _ = c.GetStore(ctx)
	_, _ = c.GetProduct(ctx, "p1")
	_, _ = c.GetStoreBannerURL(ctx)

	c.ClearProduct("p1")
	c.ClearBanner()
	assert.Equal(t, []string{"store"}, c.Stats().Keys)

	c.ClearStore()
	assert.Empty(t, c.Stats().Keys)
}

func TestCatalog_ClearStoreDuringFetchDropsResult(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	src.set(func(f *fakeSource) { f.storeGate = gate })
	c, _ := newTestCatalog(t, src)

	done := make(chan *platform.StoreResult, 1)
	go func() {
		res, _ := c.GetStore(context.Background())
		done <- res
	}()
	require.Eventually(t, func() bool { return c.Stats().PendingRequests == 1 }, time.Second, time.Millisecond)

	c.ClearStore()
	close(gate)
	res := <-done
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Equal(t, 0, c.Stats().Size)
}

//
// ================= WARM =================
//

func TestCatalog_WarmCache(t *testing.T) {
	src := newFakeSource()
	c, _ := newTestCatalog(t, src, func(cfg *cache.Config) { cfg.WarmStore = true })

	c.WarmCache(context.Background())
	assert.Equal(t, []string{"banner", "store"}, c.Stats().Keys)
}

func TestCatalog_WarmCacheLogsFailures(t *testing.T) {
	src := newFakeSource()
	src.set(func(f *fakeSource) { f.bannerErr = errors.New("cdn down") })

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c, err := cache.NewCatalog(src, cache.DefaultConfig(), cache.WithLogger(logger))
	require.NoError(t, err)

	c.WarmCache(context.Background())
	assert.Contains(t, buf.String(), "warming banner failed")
	assert.Empty(t, c.Stats().Keys)
}

//
// ================= CONFIG =================
//

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, cache.DefaultConfig().Validate())

	cfg := cache.DefaultConfig()
	cfg.ReviewsTTL = 0
	assert.ErrorContains(t, cfg.Validate(), "reviews TTL")

	cfg = cache.DefaultConfig()
	cfg.MaxEntries = -1
	assert.Error(t, cfg.Validate())

	_, err := cache.NewCatalog(nil, cfg)
	assert.ErrorContains(t, err, "invalid cache config")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "product:trail-hoodie", cache.ProductKey("trail-hoodie"))
	assert.Equal(t, "reviews:p1:3", cache.ReviewsKey("p1", 3))
	assert.Equal(t, "reviews:p1:", cache.ReviewsPrefix("p1"))
}
