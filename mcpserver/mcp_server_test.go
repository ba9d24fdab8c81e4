package mcpserver_test

import (
	"context"
	"testing"

	cache "github.com/krisalay/storefront-cache"
	"github.com/krisalay/storefront-cache/api"
	"github.com/krisalay/storefront-cache/mcpserver"
	"github.com/krisalay/storefront-cache/platform"
	"github.com/krisalay/storefront-cache/platform/local"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*server.MCPServer, *cache.Catalog, *local.Platform) {
	t.Helper()
	p, err := local.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.Init(context.Background(), "demo-store"))

	cat, err := cache.NewCatalog(p, cache.DefaultConfig())
	require.NoError(t, err)
	return mcpserver.NewMCPServer(cat, "test"), cat, p
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "tool failures are reported in the result, not as errors")
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	return res.Content[0].(mcp.TextContent).Text
}

func TestCatalogTools(t *testing.T) {
	s, _, p := newServer(t)

	t.Run("get_store", func(t *testing.T) {
		res := callTool(t, s, "get_store", nil)
		assert.False(t, res.IsError)
		assert.Contains(t, text(t, res), "Demo Outfitters")
	})

	t.Run("get_product by slug", func(t *testing.T) {
		res := callTool(t, s, "get_product", map[string]any{"id": "canvas-tote"})
		assert.False(t, res.IsError)
		assert.Contains(t, text(t, res), `"id": "p2"`)
	})

	t.Run("get_product missing id", func(t *testing.T) {
		res := callTool(t, s, "get_product", map[string]any{})
		assert.True(t, res.IsError)
		assert.Contains(t, text(t, res), "id is required")
	})

	t.Run("get_product unknown", func(t *testing.T) {
		res := callTool(t, s, "get_product", map[string]any{"id": "ghost"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(t, res), "not found")
	})

	t.Run("get_product_reviews", func(t *testing.T) {
		res := callTool(t, s, "get_product_reviews", map[string]any{"product_id": "p1", "page": 1.0})
		assert.False(t, res.IsError)
		assert.Contains(t, text(t, res), "Runs a little large.")
	})

	t.Run("get_banner twice hits the platform once", func(t *testing.T) {
		for range 2 {
			res := callTool(t, s, "get_banner", nil)
			assert.Equal(t, "https://cdn.example.com/banners/demo-store.png", text(t, res))
		}
		assert.Equal(t, 1, p.Calls("getStoreBannerUrl"))
	})
}

func TestCacheTools(t *testing.T) {
	s, cat, _ := newServer(t)

	callTool(t, s, "get_store", nil)
	callTool(t, s, "get_product_reviews", map[string]any{"product_id": "p1"})

	res := callTool(t, s, "cache_stats", nil)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), `"requestCount": 2`)

	res = callTool(t, s, "clear_cache", map[string]any{"resource": "reviews"})
	assert.True(t, res.IsError)

	res = callTool(t, s, "clear_cache", map[string]any{"resource": "reviews", "id": "p1"})
	assert.False(t, res.IsError)
	assert.Equal(t, []string{"store"}, cat.Stats().Keys)

	res = callTool(t, s, "clear_cache", nil)
	assert.Equal(t, "cleared all", text(t, res))
	assert.Empty(t, cat.Stats().Keys)

	res = callTool(t, s, "clear_cache", map[string]any{"resource": "orders"})
	assert.True(t, res.IsError)
}

func TestToolErrors(t *testing.T) {
	m := &api.MockCatalog{}
	m.On("GetStore", mock.Anything).Return(nil, platform.ErrUnavailable)
	m.On("GetStoreBannerURL", mock.Anything).Return("", nil)
	s := mcpserver.NewMCPServer(m, "test")

	res := callTool(t, s, "get_store", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "unavailable")

	res = callTool(t, s, "get_banner", nil)
	assert.False(t, res.IsError)
	assert.Equal(t, "the store has no banner", text(t, res))

	m.AssertExpectations(t)
}
