package cache

import "strconv"

// Cache keys. Each logical resource has exactly one key shape.
const (
	StoreKey  = "store"
	BannerKey = "banner"
)

func ProductKey(idOrSlug string) string {
	return "product:" + idOrSlug
}

func ReviewsKey(productID string, page int) string {
	return ReviewsPrefix(productID) + strconv.Itoa(page)
}

// ReviewsPrefix matches every cached page of one product. The trailing colon keeps
// "reviews:p1:" from matching "reviews:p10:1".
func ReviewsPrefix(productID string) string {
	return "reviews:" + productID + ":"
}
