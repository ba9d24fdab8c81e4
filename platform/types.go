package platform

import "time"

// Store is the storefront catalog as returned by the platform.
type Store struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Currency  string    `json:"currency" yaml:"currency"`
	BannerURL string    `json:"bannerUrl,omitempty" yaml:"banner_url"`
	Products  []Product `json:"products" yaml:"products"`
}

// FindProduct returns the product whose ID or slug equals idOrSlug.
func (s *Store) FindProduct(idOrSlug string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	for _, p := range s.Products {
		if p.ID == idOrSlug || p.Slug == idOrSlug {
			return p, true
		}
	}
	return Product{}, false
}

type Product struct {
	ID          string    `json:"id" yaml:"id"`
	Slug        string    `json:"slug" yaml:"slug"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description"`
	ImageURL    string    `json:"imageUrl,omitempty" yaml:"image_url"`
	Variants    []Variant `json:"variants" yaml:"variants"`
}

// Variant returns the variant with the given id.
func (p *Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

type Variant struct {
	ID    string  `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Price float64 `json:"price" yaml:"price"`
	Stock int     `json:"stock" yaml:"stock"`
}

type Review struct {
	ID        string    `json:"id" yaml:"id"`
	ProductID string    `json:"productId" yaml:"product_id"`
	Rating    int       `json:"rating" yaml:"rating"`
	Reason    string    `json:"reason" yaml:"reason"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// BasketItem is one basket line. Quantity is at least 1.
type BasketItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// Result envelopes mirror the platform's {success, data, message} responses.

type StoreResult struct {
	Success bool   `json:"success"`
	Data    *Store `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type ProductResult struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
}

type ReviewsResult struct {
	Success bool     `json:"success"`
	Data    []Review `json:"data,omitempty"`
	Pages   int      `json:"pages"`
	Message string   `json:"message,omitempty"`
}

type CheckoutResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
}

type OrderLine struct {
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type Order struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Status    string      `json:"status"`
	Lines     []OrderLine `json:"lines"`
	Discount  float64     `json:"discount"`
	Total     float64     `json:"total"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"createdAt"`
}

type OrdersResult struct {
	Success bool    `json:"success"`
	Data    []Order `json:"data,omitempty"`
	Pages   int     `json:"pages"`
	Message string  `json:"message,omitempty"`
}

type Ticket struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	OrderID   string    `json:"orderId,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// TicketRequest is the input of CreateTicket.
type TicketRequest struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}
