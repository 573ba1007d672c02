package cache

import (
	"fmt"

	"github.com/pricelens/backend/internal/domain"
)

// Store is a cache backend that owns resources released by Close
type Store interface {
	domain.CacheRepository
	Close() error
}

// New builds the backend named by kind: "memory", "bolt" or "none"
func New(kind, path string) (Store, error) {
	switch kind {
	case "memory":
		return NewMemoryCache(), nil
	case "bolt":
		return NewBoltCache(path)
	case "none", "":
		return NoopCache{}, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", kind)
	}
}
