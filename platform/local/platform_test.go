package local_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/krisalay/storefront-cache/platform"
	"github.com/krisalay/storefront-cache/platform/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newDemo(t *testing.T, opts ...local.Option) *local.Platform {
	t.Helper()
	p, err := local.New(nil, opts...)
	require.NoError(t, err)
	require.NoError(t, p.Init(context.Background(), "demo-store"))
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPlatform_UnavailableBeforeInit(t *testing.T) {
	p, err := local.New(nil)
	require.NoError(t, err)

	ready, err := p.Ready(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)

	_, err = p.GetStore(context.Background())
	assert.ErrorIs(t, err, platform.ErrUnavailable)

	err = p.Init(context.Background(), "other-store")
	assert.ErrorIs(t, err, platform.ErrCallFailed)
	assert.True(t, platform.IsValidation(p.Init(context.Background(), " ")))

	require.NoError(t, p.Init(context.Background(), "demo-store"))
	ready, _ = p.Ready(context.Background())
	assert.True(t, ready)
}

func TestPlatform_WithoutMethods(t *testing.T) {
	p := newDemo(t, local.WithoutMethods("getStoreBannerUrl", "setBasketQuantity"))

	_, err := p.GetStoreBannerURL(context.Background())
	assert.ErrorIs(t, err, platform.ErrUnavailable)

	qs := p.Basket("s1").(platform.QuantitySetter)
	assert.ErrorIs(t, qs.SetBasketQuantity(context.Background(), "p1", "p1-m", 1), platform.ErrUnavailable)

	_, err = p.GetStore(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, p.Calls("getStoreBannerUrl"))
}

func TestPlatform_Catalog(t *testing.T) {
	p := newDemo(t)
	ctx := context.Background()

	store, err := p.GetStore(ctx)
	require.NoError(t, err)
	require.True(t, store.Success)
	assert.Equal(t, "Demo Outfitters", store.Data.Name)
	assert.Len(t, store.Data.Products, 3)

	// Results are copies.
	store.Data.Products[0].Variants[0].Stock = 999
	again, _ := p.GetStore(ctx)
	assert.Equal(t, 12, again.Data.Products[0].Variants[0].Stock)

	bySlug, err := p.GetProduct(ctx, "canvas-tote")
	require.NoError(t, err)
	assert.True(t, bySlug.Success)
	assert.Equal(t, "p2", bySlug.Data.ID)

	missing, err := p.GetProduct(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, missing.Success)
	assert.Equal(t, "product not found", missing.Message)

	banner, err := p.GetStoreBannerURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/banners/demo-store.png", banner)
}

func TestPlatform_Reviews(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	p := newDemo(t, local.WithReviewPageSize(2), local.WithClock(fixedClock{now}))
	ctx := context.Background()

	res, err := p.GetProductReviews(ctx, "p1", 0)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Pages)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "r2", res.Data[0].ID, "newest first")

	_, err = p.CreateReview(ctx, "p1", 6, "great")
	assert.True(t, platform.IsValidation(err))

	r, err := p.CreateReview(ctx, "trail-hoodie", 3, "  ok  ")
	require.NoError(t, err)
	assert.Equal(t, "p1", r.ProductID)
	assert.Equal(t, "ok", r.Reason)
	assert.Equal(t, now, r.CreatedAt)

	res, err = p.GetProductReviews(ctx, "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, r.ID, res.Data[0].ID)

	res, err = p.GetProductReviews(ctx, "p1", 2)
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)

	res, err = p.GetProductReviews(ctx, "p1", 9)
	require.NoError(t, err)
	assert.Empty(t, res.Data)

	res, err = p.GetProductReviews(ctx, "nope", 1)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestPlatform_Basket(t *testing.T) {
	p := newDemo(t)
	ctx := context.Background()
	b := p.Basket("s1")

	require.NoError(t, b.AddToBasket(ctx, "p1", "p1-m", 2))
	require.NoError(t, b.AddToBasket(ctx, "p1", "p1-m", 1))
	require.NoError(t, b.AddToBasket(ctx, "p2", "p2-std", 1))

	items, err := b.GetBasket(ctx)
	require.NoError(t, err)
	assert.Equal(t, []platform.BasketItem{
		{ProductID: "p1", VariantID: "p1-m", Quantity: 3},
		{ProductID: "p2", VariantID: "p2-std", Quantity: 1},
	}, items)

	assert.True(t, platform.IsValidation(b.AddToBasket(ctx, "p1", "p1-m", 0)))
	assert.ErrorIs(t, b.AddToBasket(ctx, "p3", "p3-red", 1), platform.ErrCallFailed, "out of stock")
	assert.ErrorIs(t, b.AddToBasket(ctx, "p9", "x", 1), platform.ErrCallFailed, "unknown product")

	qs, ok := b.(platform.QuantitySetter)
	require.True(t, ok)
	require.NoError(t, qs.SetBasketQuantity(ctx, "p1", "p1-m", 5))
	require.NoError(t, qs.SetBasketQuantity(ctx, "p2", "p2-std", 0))
	assert.ErrorIs(t, qs.SetBasketQuantity(ctx, "p1", "p1-l", 5), platform.ErrCallFailed)

	items, _ = b.GetBasket(ctx)
	assert.Equal(t, []platform.BasketItem{{ProductID: "p1", VariantID: "p1-m", Quantity: 5}}, items)

	require.NoError(t, b.RemoveFromBasket(ctx, "p1", "p1-m"))
	items, _ = b.GetBasket(ctx)
	assert.Empty(t, items)

	require.NoError(t, b.AddToBasket(ctx, "p2", "p2-std", 1))
	require.NoError(t, b.ClearBasket(ctx))
	items, _ = b.GetBasket(ctx)
	assert.Empty(t, items)
}

func TestPlatform_Checkout(t *testing.T) {
	p := newDemo(t, local.WithCheckoutURL("https://pay.example.com/"))
	ctx := context.Background()

	_, err := p.Checkout(ctx, "s1", "not-an-email", "")
	assert.True(t, platform.IsValidation(err))

	res, err := p.Checkout(ctx, "s1", "ana@example.com", "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "basket is empty", res.Message)

	b := p.Basket("s1")
	require.NoError(t, b.AddToBasket(ctx, "p1", "p1-l", 2))
	require.NoError(t, b.AddToBasket(ctx, "p2", "p2-std", 2))

	res, err = p.Checkout(ctx, "s1", "ana@example.com", "BOGUS")
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = p.Checkout(ctx, "s1", "Ana@Example.com", "welcome10")
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "https://pay.example.com/"+res.OrderID, res.CheckoutURL)

	items, _ := b.GetBasket(ctx)
	assert.Empty(t, items, "checkout empties the basket")

	prod, _ := p.GetProduct(ctx, "p1")
	v, _ := prod.Data.Variant("p1-l")
	assert.Equal(t, 2, v.Stock)

	// Log in to see the order: (2*58 + 2*18.5) = 153, minus 10%.
	_, err = p.Login(ctx, "ana@example.com")
	require.NoError(t, err)
	code, ok := p.PendingCode("ana@example.com")
	require.True(t, ok)
	assert.Len(t, code, 6)

	bad, err := p.VerifyLogin(ctx, "ana@example.com", "nope")
	require.NoError(t, err)
	assert.False(t, bad.Success)

	login, err := p.VerifyLogin(ctx, "ana@example.com", code)
	require.NoError(t, err)
	require.True(t, login.Success)

	orders, err := p.GetOrders(ctx, login.Token, 1)
	require.NoError(t, err)
	require.Len(t, orders.Data, 1)
	assert.InDelta(t, 15.30, orders.Data[0].Discount, 0.001)
	assert.InDelta(t, 137.70, orders.Data[0].Total, 0.001)

	o, err := p.GetOrder(ctx, login.Token, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "pending", o.Status)

	_, err = p.GetOrder(ctx, "bad-token", res.OrderID)
	var ce *platform.CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "not authenticated", ce.Message)

	unauth, err := p.GetOrders(ctx, "bad-token", 1)
	require.NoError(t, err)
	assert.False(t, unauth.Success)
}

func TestPlatform_CheckoutInsufficientStock(t *testing.T) {
	p := newDemo(t)
	ctx := context.Background()

	require.NoError(t, p.Basket("a").AddToBasket(ctx, "p1", "p1-l", 3))
	require.NoError(t, p.Basket("b").AddToBasket(ctx, "p1", "p1-l", 3))

	res, err := p.Checkout(ctx, "a", "a@example.com", "")
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = p.Checkout(ctx, "b", "b@example.com", "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "only 1")
}

func TestPlatform_ConcurrentCheckoutPlacesOneOrder(t *testing.T) {
	p := newDemo(t)
	ctx := context.Background()
	require.NoError(t, p.Basket("s1").AddToBasket(ctx, "p1", "p1-l", 1))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		emptied int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Checkout(ctx, "s1", "ana@example.com", "")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Success {
				placed++
			} else if res.Message == "basket is empty" {
				emptied++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, 7, emptied)

	prod, err := p.GetProduct(ctx, "p1")
	require.NoError(t, err)
	v, _ := prod.Data.Variant("p1-l")
	assert.Equal(t, 3, v.Stock, "stock is decremented once")
}

func TestPlatform_Tickets(t *testing.T) {
	p := newDemo(t)
	ctx := context.Background()

	_, err := p.CreateTicket(ctx, platform.TicketRequest{Email: "ana@example.com", Subject: "", Message: "hi"})
	assert.True(t, platform.IsValidation(err))

	tk, err := p.CreateTicket(ctx, platform.TicketRequest{Email: "ana@example.com", Subject: "Where is my order", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "open", tk.Status)
	assert.NotEmpty(t, tk.ID)

	list, err := p.GetTickets(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = p.GetTickets(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPlatform_Formatter(t *testing.T) {
	p := newDemo(t)
	f, err := p.CreateFormatter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "USD", f.Currency())
	assert.Contains(t, f.Format(12.5), "12.5")
}

func TestPlatform_LatencyHonorsContext(t *testing.T) {
	p := newDemo(t, local.WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.GetStore(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFixture_Validation(t *testing.T) {
	_, err := local.ParseFixture([]byte("store: {name: x}"))
	assert.ErrorContains(t, err, "store.id")

	_, err = local.ParseFixture([]byte(`
store:
  id: s
  products:
    - {id: a, slug: x}
    - {id: b, slug: x}
`))
	assert.ErrorContains(t, err, "duplicate")

	_, err = local.ParseFixture([]byte(`
store: {id: s}
reviews:
  - {id: r, product_id: ghost, rating: 5}
`))
	assert.ErrorContains(t, err, "unknown product")

	f, err := local.ParseFixture([]byte("store: {id: s}"))
	require.NoError(t, err)
	assert.Equal(t, "USD", f.Store.Currency)
}
