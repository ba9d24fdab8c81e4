// Package mcpserver exposes the cached storefront catalog as Model Context Protocol tools.
package mcpserver

import (
	"github.com/krisalay/storefront-cache/api"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer builds the storefront MCP server without starting it.
func NewMCPServer(catalog api.Catalog, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Storefront Catalog Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{catalog: catalog}

	s.AddTool(mcp.NewTool("get_store",
		mcp.WithDescription("Return the store with its products, currency and banner. Served from cache when fresh."),
	), h.handleGetStore)

	s.AddTool(mcp.NewTool("get_product",
		mcp.WithDescription("Return one product by id or slug."),
		mcp.WithString("id", mcp.Description("Product id or slug."), mcp.Required()),
	), h.handleGetProduct)

	s.AddTool(mcp.NewTool("get_product_reviews",
		mcp.WithDescription("Return one page of a product's reviews, newest first."),
		mcp.WithString("product_id", mcp.Description("Product id."), mcp.Required()),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1.")),
	), h.handleGetProductReviews)

	s.AddTool(mcp.NewTool("get_banner",
		mcp.WithDescription("Return the store banner URL, if the store has one."),
	), h.handleGetBanner)

	s.AddTool(mcp.NewTool("cache_stats",
		mcp.WithDescription("Report cache size, keys, hit ratio and platform request counts."),
	), h.handleCacheStats)

	s.AddTool(mcp.NewTool("clear_cache",
		mcp.WithDescription("Invalidate cached catalog data."),
		mcp.WithString("resource", mcp.Description("What to clear. Defaults to 'all'."), mcp.Enum("all", "store", "banner", "product", "reviews")),
		mcp.WithString("id", mcp.Description("Product id or slug; required for 'product' and 'reviews'.")),
	), h.handleClearCache)

	return s
}

// Serve runs the MCP server over stdio until the client disconnects.
func Serve(catalog api.Catalog, version string) error {
	return server.ServeStdio(NewMCPServer(catalog, version))
}
