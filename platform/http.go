package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

/*
HTTPClient talks to a remote platform over its REST API:

	<base>/v1/health
	<base>/v1/stores/<store>/...

Every response body is an envelope {success, data, message, pages}.
405 and 501 mean the platform does not offer the method and map to ErrUnavailable;
other non-2xx statuses and transport failures become *CallError.
*/
type HTTPClient struct {
	base  string
	token string
	http  *http.Client

	mu      sync.RWMutex
	storeID string
}

var _ Client = &HTTPClient{} // Compile-time check

type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAPIToken sends the token as a bearer credential on every call.
func WithAPIToken(token string) HTTPOption {
	return func(c *HTTPClient) { c.token = token }
}

func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Pages   int             `json:"pages"`
}

func (c *HTTPClient) storePath(parts ...string) string {
	c.mu.RLock()
	id := c.storeID
	c.mu.RUnlock()

	escaped := make([]string, 0, len(parts)+3)
	escaped = append(escaped, "v1", "stores", url.PathEscape(id))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return "/" + strings.Join(escaped, "/")
}

func (c *HTTPClient) do(ctx context.Context, method, name, path string, query url.Values, body any, auth string) (*envelope, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, &CallError{Method: name, Err: fmt.Errorf("encode request: %w", err)}
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, &CallError{Method: name, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth == "" {
		auth = c.token
	}
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &CallError{Method: name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		return nil, fmt.Errorf("%s: %w", name, ErrUnavailable)
	}

	var env envelope
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &CallError{Method: name, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, &CallError{Method: name, Err: fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, &CallError{Method: name, Message: msg}
	}
	return &env, nil
}

func decodeData(name string, env *envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &CallError{Method: name, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

// requireSuccess turns success=false envelopes of mutating calls into errors.
func requireSuccess(name string, env *envelope) error {
	if !env.Success {
		return Failed(name, env.Message)
	}
	return nil
}

func (c *HTTPClient) Init(_ context.Context, storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return Invalid("store_id", "must not be empty")
	}
	c.mu.Lock()
	c.storeID = storeID
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) Ready(ctx context.Context) (bool, error) {
	env, err := c.do(ctx, http.MethodGet, "ready", "/v1/health", nil, nil, "")
	if err != nil {
		return false, err
	}
	return env.Success, nil
}

func (c *HTTPClient) GetStore(ctx context.Context) (*StoreResult, error) {
	env, err := c.do(ctx, http.MethodGet, "getStore", c.storePath(), nil, nil, "")
	if err != nil {
		return nil, err
	}
	res := &StoreResult{Success: env.Success, Message: env.Message}
	if env.Success {
		res.Data = &Store{}
		if err := decodeData("getStore", env, res.Data); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (c *HTTPClient) GetProduct(ctx context.Context, idOrSlug string) (*ProductResult, error) {
	env, err := c.do(ctx, http.MethodGet, "getProduct", c.storePath("products", idOrSlug), nil, nil, "")
	if err != nil {
		return nil, err
	}
	res := &ProductResult{Success: env.Success, Message: env.Message}
	if env.Success {
		res.Data = &Product{}
		if err := decodeData("getProduct", env, res.Data); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (c *HTTPClient) GetProductReviews(ctx context.Context, productID string, page int) (*ReviewsResult, error) {
	q := url.Values{"page": {strconv.Itoa(page)}}
	env, err := c.do(ctx, http.MethodGet, "getProductReviews", c.storePath("products", productID, "reviews"), q, nil, "")
	if err != nil {
		return nil, err
	}
	res := &ReviewsResult{Success: env.Success, Message: env.Message, Pages: env.Pages}
	if err := decodeData("getProductReviews", env, &res.Data); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *HTTPClient) GetStoreBannerURL(ctx context.Context) (string, error) {
	env, err := c.do(ctx, http.MethodGet, "getStoreBannerUrl", c.storePath("banner"), nil, nil, "")
	if err != nil {
		return "", err
	}
	var u *string
	if err := decodeData("getStoreBannerUrl", env, &u); err != nil {
		return "", err
	}
	if u == nil {
		return "", nil
	}
	return *u, nil
}

func (c *HTTPClient) Checkout(ctx context.Context, sessionID, email, couponCode string) (*CheckoutResult, error) {
	body := map[string]string{"sessionId": sessionID, "email": email, "couponCode": couponCode}
	env, err := c.do(ctx, http.MethodPost, "checkout", c.storePath("checkout"), nil, body, "")
	if err != nil {
		return nil, err
	}
	res := &CheckoutResult{}
	if err := decodeData("checkout", env, res); err != nil {
		return nil, err
	}
	res.Success = env.Success
	if res.Message == "" {
		res.Message = env.Message
	}
	return res, nil
}

func (c *HTTPClient) Login(ctx context.Context, email string) (*LoginResult, error) {
	env, err := c.do(ctx, http.MethodPost, "login", c.storePath("login"), nil, map[string]string{"email": email}, "")
	if err != nil {
		return nil, err
	}
	return &LoginResult{Success: env.Success, Message: env.Message}, nil
}

func (c *HTTPClient) VerifyLogin(ctx context.Context, email, code string) (*LoginResult, error) {
	body := map[string]string{"email": email, "code": code}
	env, err := c.do(ctx, http.MethodPost, "verifyLogin", c.storePath("login", "verify"), nil, body, "")
	if err != nil {
		return nil, err
	}
	res := &LoginResult{Success: env.Success, Message: env.Message}
	if err := decodeData("verifyLogin", env, &res.Token); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *HTTPClient) GetOrders(ctx context.Context, token string, page int) (*OrdersResult, error) {
	q := url.Values{"page": {strconv.Itoa(page)}}
	env, err := c.do(ctx, http.MethodGet, "getOrders", c.storePath("orders"), q, nil, token)
	if err != nil {
		return nil, err
	}
	res := &OrdersResult{Success: env.Success, Message: env.Message, Pages: env.Pages}
	if err := decodeData("getOrders", env, &res.Data); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *HTTPClient) GetOrder(ctx context.Context, token, orderID string) (*Order, error) {
	env, err := c.do(ctx, http.MethodGet, "getOrder", c.storePath("orders", orderID), nil, nil, token)
	if err != nil {
		return nil, err
	}
	if err := requireSuccess("getOrder", env); err != nil {
		return nil, err
	}
	o := &Order{}
	if err := decodeData("getOrder", env, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (c *HTTPClient) CreateTicket(ctx context.Context, req TicketRequest) (*Ticket, error) {
	env, err := c.do(ctx, http.MethodPost, "createTicket", c.storePath("tickets"), nil, req, "")
	if err != nil {
		return nil, err
	}
	if err := requireSuccess("createTicket", env); err != nil {
		return nil, err
	}
	t := &Ticket{}
	if err := decodeData("createTicket", env, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *HTTPClient) GetTickets(ctx context.Context, email string) ([]Ticket, error) {
	env, err := c.do(ctx, http.MethodGet, "getTickets", c.storePath("tickets"), url.Values{"email": {email}}, nil, "")
	if err != nil {
		return nil, err
	}
	if err := requireSuccess("getTickets", env); err != nil {
		return nil, err
	}
	var tickets []Ticket
	if err := decodeData("getTickets", env, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *HTTPClient) CreateReview(ctx context.Context, productID string, rating int, reason string) (*Review, error) {
	body := map[string]any{"rating": rating, "reason": reason}
	env, err := c.do(ctx, http.MethodPost, "createReview", c.storePath("products", productID, "reviews"), nil, body, "")
	if err != nil {
		return nil, err
	}
	if err := requireSuccess("createReview", env); err != nil {
		return nil, err
	}
	r := &Review{}
	if err := decodeData("createReview", env, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateFormatter builds a formatter for the store currency.
func (c *HTTPClient) CreateFormatter(ctx context.Context) (Formatter, error) {
	res, err := c.GetStore(ctx)
	if err != nil {
		return nil, err
	}
	if !res.Success || res.Data == nil {
		return nil, Failed("createFormatter", res.Message)
	}
	return NewCurrencyFormatter(res.Data.Currency, "")
}

// Basket returns the basket of a shopper session.
func (c *HTTPClient) Basket(sessionID string) Basket {
	return &httpBasket{c: c, session: sessionID}
}

type httpBasket struct {
	c       *HTTPClient
	session string
}

func (b *httpBasket) path(parts ...string) string {
	return b.c.storePath(append([]string{"baskets", b.session, "items"}, parts...)...)
}

func (b *httpBasket) GetBasket(ctx context.Context) ([]BasketItem, error) {
	env, err := b.c.do(ctx, http.MethodGet, "getBasket", b.path(), nil, nil, "")
	if err != nil {
		return nil, err
	}
	var items []BasketItem
	if err := decodeData("getBasket", env, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (b *httpBasket) AddToBasket(ctx context.Context, productID, variantID string, quantity int) error {
	body := BasketItem{ProductID: productID, VariantID: variantID, Quantity: quantity}
	env, err := b.c.do(ctx, http.MethodPost, "addToBasket", b.path(), nil, body, "")
	if err != nil {
		return err
	}
	return requireSuccess("addToBasket", env)
}

func (b *httpBasket) RemoveFromBasket(ctx context.Context, productID, variantID string) error {
	env, err := b.c.do(ctx, http.MethodDelete, "removeFromBasket", b.path(productID, variantID), nil, nil, "")
	if err != nil {
		return err
	}
	return requireSuccess("removeFromBasket", env)
}

func (b *httpBasket) ClearBasket(ctx context.Context) error {
	env, err := b.c.do(ctx, http.MethodDelete, "clearBasket", b.path(), nil, nil, "")
	if err != nil {
		return err
	}
	return requireSuccess("clearBasket", env)
}
