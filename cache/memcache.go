package cache

import (
	"github.com/nci/gomemcache/memcache"
)

// MemcacheBackend shares entries between workers through memcached. Items
// above the server's size limit fail to store; the caller treats that like
// any other write failure.
type MemcacheBackend struct {
	mc *memcache.Client
}

// NewMemcacheBackend connects lazily; errors surface on Get and Put.
func NewMemcacheBackend(address string) *MemcacheBackend {
	return &MemcacheBackend{mc: memcache.New(address)}
}

func (m *MemcacheBackend) Get(key Key) ([]byte, error) {
	item, err := m.mc.Get(key.Hash())
	if err == memcache.ErrCacheMiss {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (m *MemcacheBackend) Put(key Key, data []byte) error {
	return m.mc.Set(&memcache.Item{Key: key.Hash(), Value: data})
}

func (m *MemcacheBackend) Delete(key Key) error {
	err := m.mc.Delete(key.Hash())
	if err == memcache.ErrCacheMiss {
		return nil
	}
	return err
}

func (m *MemcacheBackend) Close() error {
	return nil
}
