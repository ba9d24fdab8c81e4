package api

import (
	"context"
	"time"

	cache "github.com/krisalay/storefront-cache"
	"github.com/krisalay/storefront-cache/platform"
	"github.com/stretchr/testify/mock"
)

// MockCatalog is a mock implementation of Catalog for testing.
type MockCatalog struct {
	mock.Mock
}

var _ Catalog = &MockCatalog{} // Compile-time check

func (m *MockCatalog) GetStore(ctx context.Context) (*platform.StoreResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*platform.StoreResult)
	return res, args.Error(1)
}

func (m *MockCatalog) GetProduct(ctx context.Context, idOrSlug string) (*platform.ProductResult, error) {
	args := m.Called(ctx, idOrSlug)
	res, _ := args.Get(0).(*platform.ProductResult)
	return res, args.Error(1)
}

func (m *MockCatalog) GetProductReviews(ctx context.Context, productID string, page int) (*platform.ReviewsResult, error) {
	args := m.Called(ctx, productID, page)
	res, _ := args.Get(0).(*platform.ReviewsResult)
	return res, args.Error(1)
}

func (m *MockCatalog) GetStoreBannerURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockCatalog) ClearProduct(idOrSlug string)         { m.Called(idOrSlug) }
func (m *MockCatalog) ClearProductReviews(productID string) { m.Called(productID) }
func (m *MockCatalog) ClearStore()                          { m.Called() }
func (m *MockCatalog) ClearBanner()                         { m.Called() }
func (m *MockCatalog) ClearAll()                            { m.Called() }

func (m *MockCatalog) Stats() cache.Stats {
	args := m.Called()
	s, _ := args.Get(0).(cache.Stats)
	return s
}

func (m *MockCatalog) TTL(key string) time.Duration {
	args := m.Called(key)
	d, _ := args.Get(0).(time.Duration)
	return d
}

func (m *MockCatalog) WarmCache(ctx context.Context) { m.Called(ctx) }
