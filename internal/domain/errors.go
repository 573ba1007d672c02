package domain

import "errors"

var (
	// ErrMissingCredentials is returned when the search API key or engine ID is not configured
	ErrMissingCredentials = errors.New("search API credentials not configured")

	// ErrQuotaExceeded is returned when the search provider reports quota exhaustion
	ErrQuotaExceeded = errors.New("search quota exceeded")

	// ErrSearchFailure is returned when a search request fails (transport or non-2xx)
	ErrSearchFailure = errors.New("search request failed")

	// ErrPageFetchFailure is returned when a candidate page cannot be fetched
	ErrPageFetchFailure = errors.New("page fetch failed")

	// ErrPriceNotFound is returned when a page was fetched but no price matched
	ErrPriceNotFound = errors.New("price not found")

	// ErrCatalogUnavailable is returned when the catalog file is missing or malformed
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
