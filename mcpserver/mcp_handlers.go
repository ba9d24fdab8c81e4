package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/krisalay/storefront-cache/api"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds the dependencies shared by the tool handlers.
type toolHandler struct {
	catalog api.Catalog
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result failed: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

func (h *toolHandler) handleGetStore(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.catalog.GetStore(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get store failed: %v", err)), nil
	}
	if !res.Success {
		return mcp.NewToolResultError(fmt.Sprintf("get store failed: %s", res.Message)), nil
	}
	return jsonResult(res.Data), nil
}

func (h *toolHandler) handleGetProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(request.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	res, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get product failed: %v", err)), nil
	}
	if !res.Success {
		return mcp.NewToolResultError(res.Message), nil
	}
	return jsonResult(res.Data), nil
}

func (h *toolHandler) handleGetProductReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(request.GetString("product_id", ""))
	if id == "" {
		return mcp.NewToolResultError("product_id is required"), nil
	}
	page := request.GetInt("page", 1)
	if page < 1 {
		page = 1
	}

	res, err := h.catalog.GetProductReviews(ctx, id, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get reviews failed: %v", err)), nil
	}
	if !res.Success {
		return mcp.NewToolResultError(res.Message), nil
	}
	return jsonResult(map[string]any{"reviews": res.Data, "page": page, "pages": res.Pages}), nil
}

func (h *toolHandler) handleGetBanner(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, err := h.catalog.GetStoreBannerURL(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get banner failed: %v", err)), nil
	}
	if u == "" {
		return mcp.NewToolResultText("the store has no banner"), nil
	}
	return mcp.NewToolResultText(u), nil
}

func (h *toolHandler) handleCacheStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := h.catalog.Stats()
	return jsonResult(map[string]any{"stats": stats, "hitRatio": stats.HitRatio()}), nil
}

func (h *toolHandler) handleClearCache(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource := strings.ToLower(request.GetString("resource", "all"))
	id := strings.TrimSpace(request.GetString("id", ""))

	switch resource {
	case "", "all":
		resource = "all"
		h.catalog.ClearAll()
	case "store":
		h.catalog.ClearStore()
	case "banner":
		h.catalog.ClearBanner()
	case "product", "reviews":
		if id == "" {
			return mcp.NewToolResultError(fmt.Sprintf("id is required to clear %s", resource)), nil
		}
		if resource == "product" {
			h.catalog.ClearProduct(id)
		} else {
			h.catalog.ClearProductReviews(id)
		}
		return mcp.NewToolResultText(fmt.Sprintf("cleared %s %s", resource, id)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown resource %q", resource)), nil
	}

	return mcp.NewToolResultText("cleared " + resource), nil
}
