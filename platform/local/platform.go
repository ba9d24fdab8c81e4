// Package local is an in-process commerce platform backed by a YAML fixture.
// It serves the full platform.Client surface for development, demos and tests.
package local

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/krisalay/storefront-cache/platform"
	"github.com/krisalay/storefront-cache/types"
)

/*
Platform emulates the remote commerce platform.

BEHAVIOR:
  - Every call fails with platform.ErrUnavailable until Init binds the fixture's store.
  - Methods disabled with WithoutMethods always fail with platform.ErrUnavailable.
  - Business rejections come back as success=false results for reads and checkout,
    and as *platform.CallError for everything else.
*/
type Platform struct {
	fixture  *Fixture
	baskets  BasketStore
	clock    types.Clock
	logger   *slog.Logger
	pageSize int
	checkout string
	latency  time.Duration
	disabled map[string]bool

	mu       sync.RWMutex
	storeID  string
	reviews  map[string][]platform.Review
	orders   []platform.Order
	codes    map[string]string // email → pending login code
	sessions map[string]string // token → email
	tickets  []platform.Ticket
	calls    map[string]int
}

var _ platform.Client = &Platform{} // Compile-time check

type Option func(*Platform)

// WithBasketStore persists baskets somewhere other than process memory.
func WithBasketStore(s BasketStore) Option {
	return func(p *Platform) {
		if s != nil {
			p.baskets = s
		}
	}
}

func WithReviewPageSize(n int) Option {
	return func(p *Platform) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithCheckoutURL sets the hosted checkout page; the order id is appended to it.
func WithCheckoutURL(u string) Option {
	return func(p *Platform) { p.checkout = strings.TrimRight(u, "/") }
}

func WithClock(c types.Clock) Option {
	return func(p *Platform) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithoutMethods makes the named methods (getStore, addToBasket, ...) answer ErrUnavailable.
func WithoutMethods(names ...string) Option {
	return func(p *Platform) {
		for _, n := range names {
			p.disabled[n] = true
		}
	}
}

// WithLatency delays every call, as a remote platform would.
func WithLatency(d time.Duration) Option {
	return func(p *Platform) { p.latency = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Platform) {
		if l != nil {
			p.logger = l
		}
	}
}

// New builds an emulator over fixture. A nil fixture means the built-in demo catalog.
func New(fixture *Fixture, opts ...Option) (*Platform, error) {
	if fixture == nil {
		demo, err := DemoFixture()
		if err != nil {
			return nil, err
		}
		fixture = demo
	}

	p := &Platform{
		fixture:  &Fixture{Store: cloneStore(fixture.Store), Locale: fixture.Locale, Coupons: fixture.Coupons},
		baskets:  NewMemoryBasketStore(),
		clock:    types.SystemClock{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		pageSize: 10,
		checkout: "https://checkout.example.com/orders",
		disabled: make(map[string]bool),
		reviews:  make(map[string][]platform.Review),
		codes:    make(map[string]string),
		sessions: make(map[string]string),
		calls:    make(map[string]int),
	}
	for _, r := range fixture.Reviews {
		p.reviews[r.ProductID] = append(p.reviews[r.ProductID], r)
	}
	for id := range p.reviews {
		sortReviews(p.reviews[id])
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Close releases the basket store.
func (p *Platform) Close() error {
	return p.baskets.Close()
}

// Calls reports how many times method was invoked, including rejected calls.
func (p *Platform) Calls(method string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls[method]
}

// enter counts the call and applies availability and latency.
func (p *Platform) enter(ctx context.Context, method string) error {
	p.mu.Lock()
	p.calls[method]++
	bound := p.storeID != ""
	p.mu.Unlock()

	if p.disabled[method] {
		return fmt.Errorf("%s: %w", method, platform.ErrUnavailable)
	}
	if !bound {
		return fmt.Errorf("%s: store not initialized: %w", method, platform.ErrUnavailable)
	}
	if p.latency > 0 {
		t := time.NewTimer(p.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return &platform.CallError{Method: method, Err: ctx.Err()}
		case <-t.C:
		}
	}
	return nil
}

func (p *Platform) Init(_ context.Context, storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return platform.Invalid("store_id", "must not be empty")
	}
	if storeID != p.fixture.Store.ID {
		return platform.Failed("init", fmt.Sprintf("unknown store %q", storeID))
	}
	p.mu.Lock()
	p.storeID = storeID
	p.mu.Unlock()
	p.logger.Info("local platform initialized", "store", storeID, "products", len(p.fixture.Store.Products))
	return nil
}

func (p *Platform) Ready(_ context.Context) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.storeID != "", nil
}

func (p *Platform) GetStore(ctx context.Context) (*platform.StoreResult, error) {
	if err := p.enter(ctx, "getStore"); err != nil {
		return nil, err
	}
	p.mu.RLock()
	s := cloneStore(p.fixture.Store)
	p.mu.RUnlock()
	return &platform.StoreResult{Success: true, Data: &s}, nil
}

func (p *Platform) GetProduct(ctx context.Context, idOrSlug string) (*platform.ProductResult, error) {
	if err := p.enter(ctx, "getProduct"); err != nil {
		return nil, err
	}
	p.mu.RLock()
	prod, ok := p.fixture.Store.FindProduct(idOrSlug)
	p.mu.RUnlock()
	if !ok {
		return &platform.ProductResult{Success: false, Message: "product not found"}, nil
	}
	prod = cloneProduct(prod)
	return &platform.ProductResult{Success: true, Data: &prod}, nil
}

func (p *Platform) GetProductReviews(ctx context.Context, productID string, page int) (*platform.ReviewsResult, error) {
	if err := p.enter(ctx, "getProductReviews"); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.fixture.Store.FindProduct(productID); !ok {
		return &platform.ReviewsResult{Success: false, Message: "product not found"}, nil
	}
	all := p.reviews[productID]
	pages := (len(all) + p.pageSize - 1) / p.pageSize
	start := (page - 1) * p.pageSize
	if start >= len(all) {
		return &platform.ReviewsResult{Success: true, Data: []platform.Review{}, Pages: pages}, nil
	}
	end := min(start+p.pageSize, len(all))
	data := make([]platform.Review, end-start)
	copy(data, all[start:end])
	return &platform.ReviewsResult{Success: true, Data: data, Pages: pages}, nil
}

func (p *Platform) GetStoreBannerURL(ctx context.Context) (string, error) {
	if err := p.enter(ctx, "getStoreBannerUrl"); err != nil {
		return "", err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fixture.Store.BannerURL, nil
}

func (p *Platform) CreateReview(ctx context.Context, productID string, rating int, reason string) (*platform.Review, error) {
	if err := p.enter(ctx, "createReview"); err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, platform.Invalid("rating", "must be between 1 and 5")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prod, ok := p.fixture.Store.FindProduct(productID)
	if !ok {
		return nil, platform.Failed("createReview", "product not found")
	}
	r := platform.Review{
		ID:        uuid.NewString(),
		ProductID: prod.ID,
		Rating:    rating,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: p.clock.Now().UTC(),
	}
	p.reviews[prod.ID] = append([]platform.Review{r}, p.reviews[prod.ID]...)
	return &r, nil
}

func (p *Platform) CreateFormatter(ctx context.Context) (platform.Formatter, error) {
	if err := p.enter(ctx, "createFormatter"); err != nil {
		return nil, err
	}
	return platform.NewCurrencyFormatter(p.fixture.Store.Currency, p.fixture.Locale)
}

func (p *Platform) Checkout(ctx context.Context, sessionID, email, couponCode string) (*platform.CheckoutResult, error) {
	if err := p.enter(ctx, "checkout"); err != nil {
		return nil, err
	}
	if !validEmail(email) {
		return nil, platform.Invalid("email", "must be an email address")
	}

	// The basket is read under mu so concurrent checkouts of one session place one order.
	p.mu.Lock()
	defer p.mu.Unlock()

	items, err := p.baskets.Items(ctx, sessionID)
	if err != nil {
		return nil, &platform.CallError{Method: "checkout", Err: err}
	}
	if len(items) == 0 {
		return &platform.CheckoutResult{Success: false, Message: "basket is empty"}, nil
	}

	pct := 0.0
	if code := strings.ToUpper(strings.TrimSpace(couponCode)); code != "" {
		v, ok := p.fixture.Coupons[code]
		if !ok {
			return &platform.CheckoutResult{Success: false, Message: fmt.Sprintf("coupon %q is not valid", couponCode)}, nil
		}
		pct = v
	}

	lines := make([]platform.OrderLine, 0, len(items))
	subtotal := 0.0
	for _, it := range items {
		prod, v, ok := p.variantRef(it.ProductID, it.VariantID)
		if !ok {
			return &platform.CheckoutResult{Success: false, Message: fmt.Sprintf("product %s/%s is no longer sold", it.ProductID, it.VariantID)}, nil
		}
		if v.Stock < it.Quantity {
			return &platform.CheckoutResult{Success: false, Message: fmt.Sprintf("only %d of %s (%s) left", v.Stock, prod.Name, v.Name)}, nil
		}
		lines = append(lines, platform.OrderLine{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      prod.Name + " - " + v.Name,
			Quantity:  it.Quantity,
			UnitPrice: v.Price,
		})
		subtotal += v.Price * float64(it.Quantity)
	}

	for _, l := range lines {
		_, v, _ := p.variantRef(l.ProductID, l.VariantID)
		v.Stock -= l.Quantity
	}

	discount := roundCents(subtotal * pct / 100)
	order := platform.Order{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Status:    "pending",
		Lines:     lines,
		Discount:  discount,
		Total:     roundCents(subtotal - discount),
		Currency:  p.fixture.Store.Currency,
		CreatedAt: p.clock.Now().UTC(),
	}
	p.orders = append(p.orders, order)

	if err := p.baskets.Clear(ctx, sessionID); err != nil {
		p.logger.Warn("clearing basket after checkout failed", "session", sessionID, "error", err)
	}
	p.logger.Info("order placed", "order", order.ID, "total", order.Total, "lines", len(lines))

	return &platform.CheckoutResult{
		Success:     true,
		CheckoutURL: p.checkout + "/" + order.ID,
		OrderID:     order.ID,
	}, nil
}

// variantRef points into the fixture so checkout can decrement stock. Callers hold mu.
func (p *Platform) variantRef(productID, variantID string) (*platform.Product, *platform.Variant, bool) {
	for i := range p.fixture.Store.Products {
		prod := &p.fixture.Store.Products[i]
		if prod.ID != productID {
			continue
		}
		for j := range prod.Variants {
			if prod.Variants[j].ID == variantID {
				return prod, &prod.Variants[j], true
			}
		}
	}
	return nil, nil, false
}

func (p *Platform) Login(ctx context.Context, email string) (*platform.LoginResult, error) {
	if err := p.enter(ctx, "login"); err != nil {
		return nil, err
	}
	if !validEmail(email) {
		return nil, platform.Invalid("email", "must be an email address")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return nil, &platform.CallError{Method: "login", Err: err}
	}
	code := fmt.Sprintf("%06d", n.Int64())
	email = strings.ToLower(strings.TrimSpace(email))

	p.mu.Lock()
	p.codes[email] = code
	p.mu.Unlock()

	// There is no mailer; the code is only logged.
	p.logger.Info("login code issued", "email", email, "code", code)
	return &platform.LoginResult{Success: true, Message: "a login code has been sent"}, nil
}

// PendingCode returns the login code issued for email, if any.
func (p *Platform) PendingCode(email string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	code, ok := p.codes[strings.ToLower(strings.TrimSpace(email))]
	return code, ok
}

func (p *Platform) VerifyLogin(ctx context.Context, email, code string) (*platform.LoginResult, error) {
	if err := p.enter(ctx, "verifyLogin"); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))

	p.mu.Lock()
	defer p.mu.Unlock()

	want, ok := p.codes[email]
	if !ok || want != strings.TrimSpace(code) {
		return &platform.LoginResult{Success: false, Message: "invalid or expired code"}, nil
	}
	delete(p.codes, email)
	token := uuid.NewString()
	p.sessions[token] = email
	return &platform.LoginResult{Success: true, Token: token}, nil
}

func (p *Platform) GetOrders(ctx context.Context, token string, page int) (*platform.OrdersResult, error) {
	if err := p.enter(ctx, "getOrders"); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	email, ok := p.sessions[token]
	if !ok {
		return &platform.OrdersResult{Success: false, Message: "not authenticated"}, nil
	}
	var mine []platform.Order
	for i := len(p.orders) - 1; i >= 0; i-- {
		if p.orders[i].Email == email {
			mine = append(mine, p.orders[i])
		}
	}
	pages := (len(mine) + p.pageSize - 1) / p.pageSize
	start := (page - 1) * p.pageSize
	if start >= len(mine) {
		return &platform.OrdersResult{Success: true, Data: []platform.Order{}, Pages: pages}, nil
	}
	end := min(start+p.pageSize, len(mine))
	return &platform.OrdersResult{Success: true, Data: mine[start:end], Pages: pages}, nil
}

func (p *Platform) GetOrder(ctx context.Context, token, orderID string) (*platform.Order, error) {
	if err := p.enter(ctx, "getOrder"); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	email, ok := p.sessions[token]
	if !ok {
		return nil, platform.Failed("getOrder", "not authenticated")
	}
	for _, o := range p.orders {
		if o.ID == orderID && o.Email == email {
			return &o, nil
		}
	}
	return nil, platform.Failed("getOrder", "order not found")
}

func (p *Platform) CreateTicket(ctx context.Context, req platform.TicketRequest) (*platform.Ticket, error) {
	if err := p.enter(ctx, "createTicket"); err != nil {
		return nil, err
	}
	switch {
	case !validEmail(req.Email):
		return nil, platform.Invalid("email", "must be an email address")
	case strings.TrimSpace(req.Subject) == "":
		return nil, platform.Invalid("subject", "must not be empty")
	case strings.TrimSpace(req.Message) == "":
		return nil, platform.Invalid("message", "must not be empty")
	}

	t := platform.Ticket{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		OrderID:   req.OrderID,
		Status:    "open",
		CreatedAt: p.clock.Now().UTC(),
	}
	p.mu.Lock()
	p.tickets = append(p.tickets, t)
	p.mu.Unlock()
	return &t, nil
}

func (p *Platform) GetTickets(ctx context.Context, email string) ([]platform.Ticket, error) {
	if err := p.enter(ctx, "getTickets"); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))

	p.mu.RLock()
	defer p.mu.RUnlock()

	out := []platform.Ticket{}
	for _, t := range p.tickets {
		if t.Email == email {
			out = append(out, t)
		}
	}
	return out, nil
}

// Basket returns the basket of a shopper session. The handle also implements
// platform.QuantitySetter.
func (p *Platform) Basket(sessionID string) platform.Basket {
	return &basket{p: p, session: sessionID}
}

type basket struct {
	p       *Platform
	session string
}

var _ platform.QuantitySetter = &basket{} // Compile-time check

func (b *basket) GetBasket(ctx context.Context) ([]platform.BasketItem, error) {
	if err := b.p.enter(ctx, "getBasket"); err != nil {
		return nil, err
	}
	items, err := b.p.baskets.Items(ctx, b.session)
	if err != nil {
		return nil, &platform.CallError{Method: "getBasket", Err: err}
	}
	return items, nil
}

func (b *basket) AddToBasket(ctx context.Context, productID, variantID string, quantity int) error {
	if err := b.p.enter(ctx, "addToBasket"); err != nil {
		return err
	}
	if quantity < 1 {
		return platform.Invalid("quantity", "must be at least 1")
	}
	current, err := b.lineQuantity(ctx, productID, variantID)
	if err != nil {
		return &platform.CallError{Method: "addToBasket", Err: err}
	}
	if err := b.p.checkStock("addToBasket", productID, variantID, current+quantity); err != nil {
		return err
	}
	if err := b.p.baskets.Add(ctx, b.session, productID, variantID, quantity); err != nil {
		return &platform.CallError{Method: "addToBasket", Err: err}
	}
	return nil
}

func (b *basket) SetBasketQuantity(ctx context.Context, productID, variantID string, quantity int) error {
	if err := b.p.enter(ctx, "setBasketQuantity"); err != nil {
		return err
	}
	if quantity < 0 {
		return platform.Invalid("quantity", "must not be negative")
	}
	if quantity > 0 {
		if err := b.p.checkStock("setBasketQuantity", productID, variantID, quantity); err != nil {
			return err
		}
	}
	if err := b.p.baskets.Set(ctx, b.session, productID, variantID, quantity); err != nil {
		return &platform.CallError{Method: "setBasketQuantity", Err: err}
	}
	return nil
}

func (b *basket) RemoveFromBasket(ctx context.Context, productID, variantID string) error {
	if err := b.p.enter(ctx, "removeFromBasket"); err != nil {
		return err
	}
	if err := b.p.baskets.Remove(ctx, b.session, productID, variantID); err != nil {
		return &platform.CallError{Method: "removeFromBasket", Err: err}
	}
	return nil
}

func (b *basket) ClearBasket(ctx context.Context) error {
	if err := b.p.enter(ctx, "clearBasket"); err != nil {
		return err
	}
	if err := b.p.baskets.Clear(ctx, b.session); err != nil {
		return &platform.CallError{Method: "clearBasket", Err: err}
	}
	return nil
}

func (b *basket) lineQuantity(ctx context.Context, productID, variantID string) (int, error) {
	items, err := b.p.baskets.Items(ctx, b.session)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		if it.ProductID == productID && it.VariantID == variantID {
			return it.Quantity, nil
		}
	}
	return 0, nil
}

func (p *Platform) checkStock(method, productID, variantID string, want int) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prod, v, ok := p.variantRef(productID, variantID)
	if !ok {
		return platform.Failed(method, fmt.Sprintf("unknown product %s/%s", productID, variantID))
	}
	if v.Stock < want {
		return platform.Failed(method, fmt.Sprintf("only %d of %s (%s) in stock", v.Stock, prod.Name, v.Name))
	}
	return nil
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}

// sortReviews orders newest first.
func sortReviews(rs []platform.Review) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
}

func cloneStore(s platform.Store) platform.Store {
	out := s
	out.Products = make([]platform.Product, len(s.Products))
	for i, p := range s.Products {
		out.Products[i] = cloneProduct(p)
	}
	return out
}

func cloneProduct(p platform.Product) platform.Product {
	out := p
	out.Variants = append([]platform.Variant(nil), p.Variants...)
	return out
}
