package cache

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nci/tstack/raster"
	"github.com/nci/tstack/utils"
	"github.com/stretchr/testify/require"
)

// memBackend is an in-memory Backend with injectable failures.
type memBackend struct {
	entries map[Key][]byte
	putErr  error
	getErr  error
	gets    int
}

func newMemBackend() *memBackend {
	return &memBackend{entries: make(map[Key][]byte)}
}

func (m *memBackend) Get(key Key) ([]byte, error) {
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memBackend) Put(key Key, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[key] = data
	return nil
}

func (m *memBackend) Delete(key Key) error {
	delete(m.entries, key)
	return nil
}

func (m *memBackend) Close() error { return nil }

func newTestCache(backend Backend) (*RowCache, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewRowCache(backend, log.New(&buf, "", 0), true), &buf
}

func TestRowCacheMissThenHit(t *testing.T) {
	c, _ := newTestCache(newMemBackend())
	key := KeyFor("sig", 3, 5, 2)
	block := testBlock()
	ids := []string{"a", "b", "c"}

	if _, ok := c.Read(key, block.Shape, block.DataType, ids); ok {
		t.Fatalf("expected a miss on an empty cache")
	}

	if !c.Write(key, block, ids) {
		t.Fatalf("write failed")
	}

	got, ok := c.Read(key, block.Shape, block.DataType, ids)
	if !ok || !got.Equal(block) {
		t.Errorf("expected the written block back")
	}

	got, ok = c.Read(key, block.Shape, block.DataType, nil)
	if !ok || !got.Equal(block) {
		t.Errorf("expected a hit without ID validation")
	}
}

func TestRowCacheImageIDMismatch(t *testing.T) {
	c, _ := newTestCache(newMemBackend())
	key := KeyFor("sig", 3, 0, 2)
	block := testBlock()
	c.Write(key, block, []string{"a", "b", "c"})

	if _, ok := c.Read(key, block.Shape, block.DataType, []string{"a", "b", "d"}); ok {
		t.Errorf("entry from different images must miss when validated")
	}
	if _, ok := c.Read(key, block.Shape, block.DataType, nil); !ok {
		t.Errorf("entry must be served when validation is off")
	}
}

func TestRowCacheShapeMismatchKeepsEntry(t *testing.T) {
	backend := newMemBackend()
	c, logBuf := newTestCache(backend)
	key := KeyFor("sig", 3, 0, 2)
	block := testBlock()
	c.Write(key, block, nil)

	wrong := raster.Shape{Bands: 2, Images: 3, Cols: 5}
	if _, ok := c.Read(key, wrong, block.DataType, nil); ok {
		t.Errorf("shape mismatch must miss")
	}
	if !strings.Contains(logBuf.String(), "does not meet size requested") {
		t.Errorf("expected a warning, log: %s", logBuf.String())
	}
	if _, kept := backend.entries[key]; !kept {
		t.Errorf("stale entry should be left for the next write to replace")
	}

	replacement := raster.NewRowBlock(wrong, block.DataType)
	c.Write(key, replacement, nil)
	if got, ok := c.Read(key, wrong, block.DataType, nil); !ok || !got.Equal(replacement) {
		t.Errorf("expected the replaced entry")
	}
}

func TestRowCacheCorruptEntry(t *testing.T) {
	backend := newMemBackend()
	c, logBuf := newTestCache(backend)
	key := KeyFor("sig", 1, 0, 1)
	backend.entries[key] = []byte("garbage")

	if _, ok := c.Lookup(key); ok {
		t.Errorf("corrupt entry must miss")
	}
	if !strings.Contains(logBuf.String(), "ignoring entry") {
		t.Errorf("expected corrupt entry to be logged, log: %s", logBuf.String())
	}
}

func TestRowCacheBackendFailures(t *testing.T) {
	backend := newMemBackend()
	c, logBuf := newTestCache(backend)
	key := KeyFor("sig", 3, 0, 2)

	backend.putErr = errors.New("disk full")
	if c.Write(key, testBlock(), nil) {
		t.Errorf("expected write to report failure")
	}
	if !strings.Contains(logBuf.String(), "disk full") {
		t.Errorf("expected write failure to be logged, log: %s", logBuf.String())
	}

	backend.getErr = errors.New("connection refused")
	if _, ok := c.Lookup(key); ok {
		t.Errorf("backend errors must miss")
	}
}

func TestNilRowCache(t *testing.T) {
	var c *RowCache
	if NewRowCache(nil, nil, false) != nil {
		t.Errorf("no backend should give a nil cache")
	}
	if _, ok := c.Read(KeyFor("", 1, 1, 1), raster.Shape{}, raster.Byte, nil); ok {
		t.Errorf("nil cache must miss")
	}
	if c.Write(KeyFor("", 1, 1, 1), testBlock(), nil) {
		t.Errorf("nil cache must not write")
	}
	if c.Delete(KeyFor("", 1, 1, 1)) != nil || c.Close() != nil || c.Backend() != nil {
		t.Errorf("nil cache operations must be no-ops")
	}
}

func TestDiskBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache", "lines")
	d := NewDiskBackend(dir)
	key := KeyFor("sig", 2, 7, 1)

	if _, err := d.Get(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, actual %v", err)
	}
	require.NoError(t, d.Put(key, []byte("one")))
	require.NoError(t, d.Put(key, []byte("two")))

	data, err := d.Get(key)
	require.NoError(t, err)
	if string(data) != "two" {
		t.Errorf("expected overwritten entry, actual %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, key.Name())); err != nil {
		t.Errorf("expected entry file: %v", err)
	}

	require.NoError(t, d.Delete(key))
	require.NoError(t, d.Delete(key))
	require.NoError(t, d.Writable())
}

func TestDiskBackendUnwritable(t *testing.T) {
	// a regular file where the cache directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	d := NewDiskBackend(filepath.Join(blocker, "cache"))

	if d.Writable() == nil {
		t.Errorf("expected Writable to fail")
	}

	c, _ := newTestCache(d)
	if c.Write(KeyFor("sig", 3, 0, 2), testBlock(), nil) {
		t.Errorf("expected write to fail")
	}
}

func TestNewBackend(t *testing.T) {
	config := &utils.Config{Dataset: utils.DatasetConfig{CacheLineDir: t.TempDir()}}
	config.ApplyDefaults()
	backend, err := NewBackend(config)
	require.NoError(t, err)
	if _, ok := backend.(*DiskBackend); !ok {
		t.Errorf("expected disk backend, actual %T", backend)
	}

	backend, err = NewBackend(&utils.Config{Cache: utils.CacheConfig{Backend: utils.CacheBackendNone}})
	require.NoError(t, err)
	if backend != nil {
		t.Errorf("expected no backend, actual %T", backend)
	}

	backend, err = NewBackend(&utils.Config{Cache: utils.CacheConfig{Backend: utils.CacheBackendMemcache, MemcacheAddress: "127.0.0.1:1"}})
	require.NoError(t, err)
	if _, ok := backend.(*MemcacheBackend); !ok {
		t.Errorf("expected memcache backend, actual %T", backend)
	}

	if _, err := NewBackend(&utils.Config{Cache: utils.CacheConfig{Backend: "s3"}}); err == nil {
		t.Errorf("expected error for an unknown backend")
	}
}

func TestSignature(t *testing.T) {
	a := Signature(utils.DatasetConfig{InputFile: "/a.csv", CacheLineDir: "/cache"})
	b := Signature(utils.DatasetConfig{InputFile: "/b.csv", CacheLineDir: "/cache"})
	if a == b {
		t.Errorf("different datasets must have different signatures")
	}
	if a != Signature(utils.DatasetConfig{InputFile: "/a.csv", CacheLineDir: "/cache", UseBIPReader: true}) {
		t.Errorf("the reader kind must not change the signature")
	}
}
