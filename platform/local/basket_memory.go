package local

import (
	"context"
	"sort"
	"sync"

	"github.com/krisalay/storefront-cache/platform"
)

type lineKey struct{ product, variant string }

// MemoryBasketStore keeps baskets in process memory.
type MemoryBasketStore struct {
	mu       sync.Mutex
	sessions map[string]map[lineKey]int
}

var _ BasketStore = &MemoryBasketStore{} // Compile-time check

func NewMemoryBasketStore() *MemoryBasketStore {
	return &MemoryBasketStore{sessions: make(map[string]map[lineKey]int)}
}

func (m *MemoryBasketStore) Items(_ context.Context, sessionID string) ([]platform.BasketItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.sessions[sessionID]
	items := make([]platform.BasketItem, 0, len(lines))
	for k, qty := range lines {
		items = append(items, platform.BasketItem{ProductID: k.product, VariantID: k.variant, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ProductID != items[j].ProductID {
			return items[i].ProductID < items[j].ProductID
		}
		return items[i].VariantID < items[j].VariantID
	})
	return items, nil
}

func (m *MemoryBasketStore) lines(sessionID string) map[lineKey]int {
	lines, ok := m.sessions[sessionID]
	if !ok {
		lines = make(map[lineKey]int)
		m.sessions[sessionID] = lines
	}
	return lines
}

func (m *MemoryBasketStore) Add(_ context.Context, sessionID, productID, variantID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines(sessionID)[lineKey{productID, variantID}] += qty
	return nil
}

func (m *MemoryBasketStore) Set(_ context.Context, sessionID, productID, variantID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qty <= 0 {
		delete(m.lines(sessionID), lineKey{productID, variantID})
		return nil
	}
	m.lines(sessionID)[lineKey{productID, variantID}] = qty
	return nil
}

func (m *MemoryBasketStore) Remove(_ context.Context, sessionID, productID, variantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines(sessionID), lineKey{productID, variantID})
	return nil
}

func (m *MemoryBasketStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryBasketStore) Close() error { return nil }
