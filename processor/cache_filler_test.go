package processor

import (
	"bytes"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nci/tstack/cache"
	"github.com/nci/tstack/raster"
	"github.com/nci/tstack/reader"
	"github.com/stretchr/testify/require"
)

func TestConcLimiter(t *testing.T) {
	limiter := NewConcLimiter(2)

	var mu sync.Mutex
	running, peak, finished := 0, 0, 0
	for i := 0; i < 10; i++ {
		limiter.Increase()
		go func() {
			defer limiter.Decrease()
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			finished++
			mu.Unlock()
		}()
	}
	limiter.Wait()

	if finished != 10 {
		t.Errorf("expected 10 finished goroutines, actual %d", finished)
	}
	if peak > 2 {
		t.Errorf("more than 2 goroutines ran at once: %d", peak)
	}
}

func TestCacheFiller(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	g := raster.Geometry{Rows: 10, Cols: 3, Bands: 2, DataType: raster.Int32}
	st := writeStack(t, dir, "LT5", 4, g, 0)
	config := testConfig(cacheDir, true)
	var logBuf bytes.Buffer
	rc := newDiskCache(cacheDir, &logBuf)

	filler := &CacheFiller{
		NewAccessor: func() *RowAccessor { return NewRowAccessor(config, g, rc, nil, nil, nil) },
		Workers:     3,
		ChunkRows:   3,
	}
	n, err := filler.Fill(st.images, 0, g.Rows)
	require.NoError(t, err)
	if n != g.Rows {
		t.Errorf("expected %d entries, actual %d", g.Rows, n)
	}

	for row := 0; row < g.Rows; row++ {
		key := cache.KeyFor(cache.Signature(config.Dataset), 4, row, g.Bands)
		got, ok := rc.Read(key, raster.Shape{Bands: g.Bands, Images: 4, Cols: g.Cols}, g.DataType, st.images.IDs())
		if !ok || !got.Equal(st.expectedRow(g, row)) {
			t.Errorf("row %d: missing or wrong cache entry", row)
		}
	}

	n, err = filler.Fill(st.images, 0, g.Rows)
	require.NoError(t, err)
	if n != 0 {
		t.Errorf("expected nothing left to write, actual %d", n)
	}
}

func TestCacheFillerError(t *testing.T) {
	dir := t.TempDir()
	g := raster.Geometry{Rows: 4, Cols: 2, Bands: 1, DataType: raster.Byte}
	st := writeStack(t, dir, "LT5", 2, g, 0)
	var logBuf bytes.Buffer
	rc := newDiskCache(filepath.Join(dir, "cache"), &logBuf)

	// rows beyond the files fail with a short read
	tall := g
	tall.Rows = 8
	filler := &CacheFiller{
		NewAccessor: func() *RowAccessor { return NewRowAccessor(testConfig(filepath.Join(dir, "cache"), true), tall, rc, nil, nil, nil) },
		Workers:     2,
		ChunkRows:   2,
	}
	if _, err := filler.Fill(st.images, 0, tall.Rows); !errors.Is(err, reader.ErrShortRead) {
		t.Errorf("expected ErrShortRead, actual %v", err)
	}
}

func TestCacheFillerClampsStop(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	g := raster.Geometry{Rows: 10, Cols: 2, Bands: 1, DataType: raster.Int16}
	st := writeStack(t, dir, "LT5", 2, g, 0)
	config := testConfig(cacheDir, true)
	var logBuf bytes.Buffer
	rc := newDiskCache(cacheDir, &logBuf)

	filler := &CacheFiller{
		NewAccessor: func() *RowAccessor { return NewRowAccessor(config, g, rc, nil, nil, nil) },
		Workers:     2,
		ChunkRows:   4,
	}
	n, err := filler.Fill(st.images, 0, 100)
	require.NoError(t, err)
	if n != g.Rows {
		t.Errorf("expected %d entries, actual %d", g.Rows, n)
	}

	n, err = filler.Fill(st.images, 12, 100)
	if !errors.Is(err, reader.ErrOutOfBounds) || n != 0 {
		t.Errorf("expected ErrOutOfBounds for a range past the last row, actual %d, %v", n, err)
	}
}
