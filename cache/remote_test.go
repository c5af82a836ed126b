package cache

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func exerciseBackend(t *testing.T, b Backend) {
	key := KeyFor("remote-test", 3, 1, 2)
	require.NoError(t, b.Delete(key))

	if _, err := b.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, actual %v", err)
	}

	c, _ := newTestCache(b)
	block := testBlock()
	if !c.Write(key, block, []string{"a", "b", "c"}) {
		t.Fatalf("write failed")
	}
	got, ok := c.Read(key, block.Shape, block.DataType, []string{"a", "b", "c"})
	if !ok || !got.Equal(block) {
		t.Errorf("expected the written block back")
	}
	require.NoError(t, b.Delete(key))
}

func TestMemcacheBackend(t *testing.T) {
	addr := os.Getenv("TSTACK_TEST_MEMCACHE")
	if addr == "" {
		t.Skip("TSTACK_TEST_MEMCACHE is not set. Skipping tests that require memcached")
	}
	exerciseBackend(t, NewMemcacheBackend(addr))
}

func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("TSTACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TSTACK_TEST_POSTGRES_DSN is not set. Skipping tests that require Postgres")
	}
	b, err := NewPostgresBackend(dsn)
	require.NoError(t, err)
	defer b.Close()
	exerciseBackend(t, b)
}
