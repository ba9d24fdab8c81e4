package server

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/krisalay/storefront-cache/cart"
	"github.com/krisalay/storefront-cache/platform"
)

type cartLine struct {
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId"`
	Name      string  `json:"name,omitempty"`
	Variant   string  `json:"variant,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
	Formatted string  `json:"formatted,omitempty"`
	Available bool    `json:"available"`
}

// cartView is a render of the cart. Prices are looked up again on every render;
// the basket snapshot only carries ids and quantities.
type cartView struct {
	Ready          bool       `json:"ready"`
	IsOpen         bool       `json:"isOpen"`
	Items          []cartLine `json:"items"`
	Count          int        `json:"count"`
	Total          float64    `json:"total"`
	FormattedTotal string     `json:"formattedTotal,omitempty"`
	Currency       string     `json:"currency,omitempty"`
	Banner         string     `json:"banner,omitempty"`
}

func (s *Server) session(r *http.Request) (*cart.Store, error) {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		return nil, platform.Invalid(SessionHeader, "header is required")
	}
	return s.carts.Get(id), nil
}

func (s *Server) renderCart(ctx context.Context, st *cart.Store) cartView {
	state := st.State()
	view := cartView{
		Ready:  st.Ready(),
		IsOpen: state.IsOpen,
		Items:  make([]cartLine, 0, len(state.Items)),
	}

	f := s.currencyFormatter(ctx)
	for _, it := range state.Items {
		line := cartLine{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
		res, err := s.catalog.GetProduct(ctx, it.ProductID)
		switch {
		case err != nil:
			s.logger.Warn("pricing cart line failed", "product", it.ProductID, "error", err)
		case res.Success && res.Data != nil:
			line.Name = res.Data.Name
			if v, ok := res.Data.Variant(it.VariantID); ok {
				line.Variant = v.Name
				line.UnitPrice = v.Price
				line.LineTotal = roundCents(v.Price * float64(it.Quantity))
				line.Available = true
			}
		}
		if f != nil && line.Available {
			line.Formatted = f.Format(line.LineTotal)
		}
		view.Count += it.Quantity
		view.Total += line.LineTotal
		view.Items = append(view.Items, line)
	}
	view.Total = roundCents(view.Total)
	if f != nil {
		view.Currency = f.Currency()
		view.FormattedTotal = f.Format(view.Total)
	}

	if u, err := s.catalog.GetStoreBannerURL(ctx); err != nil {
		s.logger.Warn("banner unavailable", "error", err)
	} else {
		view.Banner = u
	}
	return view
}

// currencyFormatter prefers the platform's formatter and falls back to the cached store
// currency. It returns nil when neither is available.
func (s *Server) currencyFormatter(ctx context.Context) platform.Formatter {
	s.mu.RLock()
	f, rt := s.formatter, s.rt
	s.mu.RUnlock()
	if f != nil {
		return f
	}

	if rt != nil {
		pf, err := rt.Client().CreateFormatter(ctx)
		if err != nil {
			s.logger.Warn("platform formatter unavailable", "error", err)
		} else {
			f = pf
		}
	}
	if f == nil {
		store, err := s.catalog.GetStore(ctx)
		if err != nil || !store.Success || store.Data == nil {
			return nil
		}
		cf, err := platform.NewCurrencyFormatter(store.Data.Currency, "")
		if err != nil {
			s.logger.Warn("store currency not formattable", "currency", store.Data.Currency, "error", err)
			return nil
		}
		f = cf
	}

	if rt != nil {
		s.mu.Lock()
		s.formatter = f
		s.mu.Unlock()
	}
	return f
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	st, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := st.Refresh(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderCart(r.Context(), st))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	st, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := st.AddItem(r.Context(), req.ProductID, req.VariantID, req.Quantity); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderCart(r.Context(), st))
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	st, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Quantity == nil {
		s.writeError(w, r, platform.Invalid("quantity", "is required"))
		return
	}
	err = st.UpdateQuantity(r.Context(), r.PathValue("productId"), r.PathValue("variantId"), *req.Quantity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderCart(r.Context(), st))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	st, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := st.RemoveItem(r.Context(), r.PathValue("productId"), r.PathValue("variantId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderCart(r.Context(), st))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	st, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := st.ClearCart(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderCart(r.Context(), st))
}

func (s *Server) handleDrawer(action cart.ActionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.session(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		st.Dispatch(cart.Action{Type: action})
		writeJSON(w, http.StatusOK, map[string]bool{"isOpen": st.State().IsOpen})
	}
}

type checkoutRequest struct {
	Email      string `json:"email"`
	CouponCode string `json:"couponCode"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	st, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		s.writeError(w, r, platform.Invalid("email", "is required"))
		return
	}
	c, err := s.client()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	res, err := c.Checkout(r.Context(), sessionID, strings.TrimSpace(req.Email), strings.TrimSpace(req.CouponCode))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: res.Message})
		return
	}

	if err := st.Refresh(r.Context()); err != nil {
		s.logger.Warn("cart refresh after checkout failed", "error", err)
	}
	st.Close()
	s.carts.Drop(sessionID)
	s.logger.Info("checkout started", "order", res.OrderID)
	writeJSON(w, http.StatusOK, res)
}
