// Package server is the JSON backend-for-frontend of the storefront.
// Catalog reads go through the cache; carts, checkout and the account dashboard go to the
// platform directly.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/krisalay/storefront-cache/api"
	"github.com/krisalay/storefront-cache/cart"
	"github.com/krisalay/storefront-cache/platform"
)

// SessionHeader carries the shopper session on cart and checkout routes.
const SessionHeader = "X-Session-ID"

/*
Server routes HTTP requests to the cached catalog, the per-session carts and the platform.

BEHAVIOR:
---------
  - Until Attach is called, routes that need the platform answer 503 and cart mutations are
    silent no-ops; catalog reads answer whatever the catalog answers.
  - Errors map to statuses: validation 400, unavailable 503, platform failure 502.
*/
type Server struct {
	catalog api.Catalog
	carts   *cart.Sessions
	logger  *slog.Logger

	mu        sync.RWMutex
	rt        *platform.Runtime
	formatter platform.Formatter
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(catalog api.Catalog, carts *cart.Sessions, opts ...Option) *Server {
	s := &Server{
		catalog: catalog,
		carts:   carts,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if s.carts == nil {
		s.carts = cart.NewSessions(nil)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach hands the server a ready platform runtime and binds every cart to it.
func (s *Server) Attach(rt *platform.Runtime) {
	s.mu.Lock()
	s.rt = rt
	s.formatter = nil
	s.mu.Unlock()
	s.carts.Attach(rt.Client())
}

func (s *Server) client() (platform.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rt == nil {
		return nil, platform.ErrUnavailable
	}
	return s.rt.Client(), nil
}

// Handler returns the routed handler with default headers and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /v1/store", s.handleStore)
	mux.HandleFunc("GET /v1/products/{id}", s.handleProduct)
	mux.HandleFunc("GET /v1/products/{id}/reviews", s.handleReviews)
	mux.HandleFunc("POST /v1/products/{id}/reviews", s.handleCreateReview)
	mux.HandleFunc("GET /v1/banner", s.handleBanner)

	mux.HandleFunc("GET /v1/cart", s.handleCart)
	mux.HandleFunc("POST /v1/cart/items", s.handleAddItem)
	mux.HandleFunc("PUT /v1/cart/items/{productId}/{variantId}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /v1/cart/items/{productId}/{variantId}", s.handleRemoveItem)
	mux.HandleFunc("DELETE /v1/cart", s.handleClearCart)
	mux.HandleFunc("POST /v1/cart/toggle", s.handleDrawer(cart.ToggleCart))
	mux.HandleFunc("POST /v1/cart/open", s.handleDrawer(cart.OpenCart))
	mux.HandleFunc("POST /v1/cart/close", s.handleDrawer(cart.CloseCart))
	mux.HandleFunc("POST /v1/checkout", s.handleCheckout)

	mux.HandleFunc("GET /v1/orders", s.handleOrders)
	mux.HandleFunc("GET /v1/orders/{id}", s.handleOrder)
	mux.HandleFunc("POST /v1/tickets", s.handleCreateTicket)
	mux.HandleFunc("GET /v1/tickets", s.handleTickets)
	mux.HandleFunc("POST /v1/login", s.handleLogin)
	mux.HandleFunc("POST /v1/login/verify", s.handleVerifyLogin)

	mux.HandleFunc("GET /v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /v1/cache/clear", s.handleCacheClear)

	return withRequestLog(s.logger, withServerDefaults(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("storefront listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("storefront shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	rt := s.rt
	s.mu.RUnlock()

	body := map[string]any{"status": "ok", "platformReady": rt != nil}
	if rt != nil {
		body["store"] = rt.StoreID()
		body["readyAt"] = rt.ReadyAt()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := s.catalog.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":    stats,
		"hitRatio": stats.HitRatio(),
	})
}

type clearRequest struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

// handleCacheClear clears one resource, or everything when the body is empty.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.writeError(w, r, err)
		return
	}

	resource := strings.ToLower(strings.TrimSpace(req.Resource))
	if (resource == "product" || resource == "reviews") && strings.TrimSpace(req.ID) == "" {
		s.writeError(w, r, platform.Invalid("id", "required for "+resource))
		return
	}
	switch resource {
	case "", "all":
		resource = "all"
		s.catalog.ClearAll()
	case "store":
		s.catalog.ClearStore()
	case "banner":
		s.catalog.ClearBanner()
	case "product":
		s.catalog.ClearProduct(req.ID)
	case "reviews":
		s.catalog.ClearProductReviews(req.ID)
	default:
		s.writeError(w, r, platform.Invalid("resource", "must be all, store, banner, product or reviews"))
		return
	}
	s.logger.Info("cache cleared via api", "resource", resource, "id", req.ID)
	writeJSON(w, http.StatusOK, map[string]any{"cleared": resource, "id": req.ID})
}
