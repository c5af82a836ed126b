package cache

import (
	"errors"
	"fmt"

	"github.com/nci/tstack/utils"
)

// ErrNotFound is returned by Backend.Get for absent entries.
var ErrNotFound = errors.New("cache entry not found")

// Backend stores encoded entries.
type Backend interface {
	Get(key Key) ([]byte, error)
	Put(key Key, data []byte) error
	Delete(key Key) error
	Close() error
}

// NewBackend builds the backend selected by config. It returns nil when
// caching is disabled.
func NewBackend(config *utils.Config) (Backend, error) {
	switch config.Cache.Backend {
	case utils.CacheBackendNone, "":
		return nil, nil
	case utils.CacheBackendDisk:
		return NewDiskBackend(config.Dataset.CacheLineDir), nil
	case utils.CacheBackendMemcache:
		return NewMemcacheBackend(config.Cache.MemcacheAddress), nil
	case utils.CacheBackendPostgres:
		pb, err := NewPostgresBackend(config.Cache.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return pb, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", config.Cache.Backend)
	}
}
