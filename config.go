package cache

import (
	"fmt"
	"time"
)

// Config is fixed when the Catalog is built and cannot be changed afterwards.
type Config struct {
	StoreDataTTL   time.Duration `json:"store_data_ttl" mapstructure:"store-ttl"`
	ProductDataTTL time.Duration `json:"product_data_ttl" mapstructure:"product-ttl"`
	ReviewsTTL     time.Duration `json:"reviews_ttl" mapstructure:"reviews-ttl"`
	BannerTTL      time.Duration `json:"banner_ttl" mapstructure:"banner-ttl"`

	// Shards is the number of entry shards; values below 1 mean 1.
	Shards int `json:"shards" mapstructure:"shards"`

	// MaxEntries bounds the cache with LRU eviction. 0 means unbounded.
	MaxEntries int `json:"max_entries" mapstructure:"max-entries"`

	// WarmStore makes WarmCache fetch the store as well as the banner.
	WarmStore bool `json:"warm_store" mapstructure:"warm-store"`
}

func DefaultConfig() Config {
	return Config{
		StoreDataTTL:   5 * time.Minute,
		ProductDataTTL: 5 * time.Minute,
		ReviewsTTL:     2 * time.Minute,
		BannerTTL:      10 * time.Minute,
		Shards:         4,
	}
}

// Validate requires every TTL to be positive and the bound to be non-negative.
func (c Config) Validate() error {
	ttls := []struct {
		name string
		ttl  time.Duration
	}{
		{"store data TTL", c.StoreDataTTL},
		{"product data TTL", c.ProductDataTTL},
		{"reviews TTL", c.ReviewsTTL},
		{"banner TTL", c.BannerTTL},
	}
	for _, t := range ttls {
		if t.ttl <= 0 {
			return fmt.Errorf("%s must be positive, got %s", t.name, t.ttl)
		}
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("max entries must not be negative, got %d", c.MaxEntries)
	}
	return nil
}
