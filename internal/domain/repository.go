package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SearchClient queries the web search provider and returns at most
// maxResults relevant candidates, in provider order.
type SearchClient interface {
	Search(ctx context.Context, term string, maxResults int) ([]SearchResult, error)
}

// RelevanceFilter decides whether a search result is worth fetching.
// Implementations must be pure: no state, no network.
type RelevanceFilter interface {
	IsRelevant(url, title, term string) bool
}

// PageFetcher retrieves the body of a candidate page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PriceExtractor returns the first plausible price on a candidate page
type PriceExtractor interface {
	ExtractPrice(ctx context.Context, url string) (string, error)
}

// Pacer blocks until the next paced operation may start
type Pacer interface {
	Wait(ctx context.Context) error
}

// CatalogRepository reads and writes the product catalog
type CatalogRepository interface {
	Load(ctx context.Context, path string) (*Catalog, error)
	Save(ctx context.Context, path string, catalog *Catalog) error
}
