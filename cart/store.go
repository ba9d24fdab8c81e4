package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/krisalay/storefront-cache/platform"
)

// ErrPartialUpdate means a quantity change removed the line but could not add it back.
// Retrying the update is safe.
var ErrPartialUpdate = errors.New("cart: quantity update partially applied")

/*
Store is the state container of one cart.

BEHAVIOR:
---------
  - Dispatch runs the reducer and notifies subscribers with the new state.
  - Mutations call the platform basket, then always re-read the whole basket and
    dispatch SetItems with it, even when the mutation failed.
  - Until Attach is called every basket operation is a no-op returning nil.
  - Mutations of one Store are serialized, so a mutation and its re-read are never
    interleaved with another mutation.
*/
type Store struct {
	ops    sync.Mutex // serializes basket mutations and their re-reads
	logger *slog.Logger

	mu     sync.RWMutex
	state  State
	basket platform.Basket
	subs   map[int]func(State)
	nextID int
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:  State{Items: []platform.BasketItem{}},
		subs:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach binds the store to a ready platform basket.
func (s *Store) Attach(b platform.Basket) {
	s.mu.Lock()
	s.basket = b
	s.mu.Unlock()
}

// Ready reports whether a basket is attached.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.basket != nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Items = copyItems(st.Items)
	return st
}

func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	st := s.state
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		cp := st
		cp.Items = copyItems(st.Items)
		fn(cp)
	}
}

// Subscribe registers fn to receive every new state. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) Toggle() { s.Dispatch(Action{Type: ToggleCart}) }
func (s *Store) Open()   { s.Dispatch(Action{Type: OpenCart}) }
func (s *Store) Close()  { s.Dispatch(Action{Type: CloseCart}) }

func (s *Store) attached(op string) platform.Basket {
	s.mu.RLock()
	b := s.basket
	s.mu.RUnlock()
	if b == nil {
		s.logger.Debug("cart not ready, skipping", "op", op)
	}
	return b
}

// reread re-reads the basket and joins a read failure to the mutation error.
func (s *Store) reread(ctx context.Context, b platform.Basket, err error) error {
	items, rerr := b.GetBasket(ctx)
	if rerr != nil {
		s.logger.Warn("basket re-read failed", "error", rerr)
		return errors.Join(err, fmt.Errorf("re-read basket: %w", rerr))
	}
	s.Dispatch(SetItemsAction(items))
	return err
}

func (s *Store) AddItem(ctx context.Context, productID, variantID string, qty int) error {
	if err := validateLine(productID, variantID); err != nil {
		return err
	}
	if qty < 1 {
		return platform.Invalid("quantity", "must be at least 1")
	}
	b := s.attached("add")
	if b == nil {
		return nil
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	return s.reread(ctx, b, b.AddToBasket(ctx, productID, variantID, qty))
}

func (s *Store) RemoveItem(ctx context.Context, productID, variantID string) error {
	if err := validateLine(productID, variantID); err != nil {
		return err
	}
	b := s.attached("remove")
	if b == nil {
		return nil
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	return s.reread(ctx, b, b.RemoveFromBasket(ctx, productID, variantID))
}

/*
UpdateQuantity sets a line's quantity; 0 removes the line.

BEHAVIOR:
---------
  - Baskets implementing platform.QuantitySetter are updated in one call.
  - Otherwise the line is removed and, for n > 0, added back with n. If the add fails the
    line is gone and ErrPartialUpdate is returned; calling UpdateQuantity again repairs it.
*/
func (s *Store) UpdateQuantity(ctx context.Context, productID, variantID string, n int) error {
	if err := validateLine(productID, variantID); err != nil {
		return err
	}
	if n < 0 {
		return platform.Invalid("quantity", "must not be negative")
	}
	b := s.attached("update")
	if b == nil {
		return nil
	}

	s.ops.Lock()
	defer s.ops.Unlock()

	if qs, ok := b.(platform.QuantitySetter); ok {
		return s.reread(ctx, b, qs.SetBasketQuantity(ctx, productID, variantID, n))
	}

	if err := b.RemoveFromBasket(ctx, productID, variantID); err != nil {
		return s.reread(ctx, b, err)
	}
	if n == 0 {
		return s.reread(ctx, b, nil)
	}
	if err := b.AddToBasket(ctx, productID, variantID, n); err != nil {
		s.logger.Warn("quantity update left line removed", "product", productID, "variant", variantID, "error", err)
		return s.reread(ctx, b, fmt.Errorf("%w: %w", ErrPartialUpdate, err))
	}
	return s.reread(ctx, b, nil)
}

func (s *Store) ClearCart(ctx context.Context) error {
	b := s.attached("clear")
	if b == nil {
		return nil
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	return s.reread(ctx, b, b.ClearBasket(ctx))
}

// Refresh re-reads the basket without changing it.
func (s *Store) Refresh(ctx context.Context) error {
	b := s.attached("refresh")
	if b == nil {
		return nil
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	return s.reread(ctx, b, nil)
}

func validateLine(productID, variantID string) error {
	if productID == "" {
		return platform.Invalid("product_id", "must not be empty")
	}
	if variantID == "" {
		return platform.Invalid("variant_id", "must not be empty")
	}
	return nil
}
