// Package platform is the boundary to the external commerce platform that owns the catalog,
// pricing, baskets, checkout sessions, orders, reviews and support tickets.
// The storefront never computes any of that itself; it only calls these interfaces.
package platform

import "context"

// Catalog is the read side cached by the storefront.
type Catalog interface {
	GetStore(ctx context.Context) (*StoreResult, error)
	GetProduct(ctx context.Context, idOrSlug string) (*ProductResult, error)
	GetProductReviews(ctx context.Context, productID string, page int) (*ReviewsResult, error)

	// GetStoreBannerURL returns "" when the store has no banner.
	GetStoreBannerURL(ctx context.Context) (string, error)
}

// Basket is one shopper's basket. The platform copy is authoritative.
type Basket interface {
	GetBasket(ctx context.Context) ([]BasketItem, error)
	AddToBasket(ctx context.Context, productID, variantID string, quantity int) error
	RemoveFromBasket(ctx context.Context, productID, variantID string) error
	ClearBasket(ctx context.Context) error
}

// QuantitySetter is implemented by baskets that can set a line's quantity in one call.
// A quantity of 0 removes the line.
type QuantitySetter interface {
	SetBasketQuantity(ctx context.Context, productID, variantID string, quantity int) error
}

// BasketProvider hands out the basket of a shopper session.
type BasketProvider interface {
	Basket(sessionID string) Basket
}

type Checkouter interface {
	Checkout(ctx context.Context, sessionID, email, couponCode string) (*CheckoutResult, error)
}

// Account covers the customer dashboard: login codes and order history.
type Account interface {
	Login(ctx context.Context, email string) (*LoginResult, error)
	VerifyLogin(ctx context.Context, email, code string) (*LoginResult, error)
	GetOrders(ctx context.Context, token string, page int) (*OrdersResult, error)
	GetOrder(ctx context.Context, token, orderID string) (*Order, error)
}

type Support interface {
	CreateTicket(ctx context.Context, req TicketRequest) (*Ticket, error)
	GetTickets(ctx context.Context, email string) ([]Ticket, error)
}

type ReviewWriter interface {
	CreateReview(ctx context.Context, productID string, rating int, reason string) (*Review, error)
}

// Initializer binds the client to a store and reports when it can serve calls.
type Initializer interface {
	Init(ctx context.Context, storeID string) error
	Ready(ctx context.Context) (bool, error)
}

type FormatterFactory interface {
	CreateFormatter(ctx context.Context) (Formatter, error)
}

// Client is the full platform surface.
type Client interface {
	Catalog
	BasketProvider
	Checkouter
	Account
	Support
	ReviewWriter
	Initializer
	FormatterFactory
}
