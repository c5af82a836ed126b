package processor

import (
	"fmt"
	"sync"

	"github.com/nci/tstack/reader"
	"github.com/nci/tstack/utils"
)

const DefaultFillChunk = 64

// CacheFiller fills the row cache with several workers. Every chunk of rows
// gets its own RowAccessor, so no file handles are shared between
// goroutines.
type CacheFiller struct {
	NewAccessor func() *RowAccessor
	Workers     int
	ChunkRows   int
}

// Fill caches the rows [start, stop) and returns the number of entries
// written. stop is clamped to the number of rows. The first error stops
// chunks that have not started yet.
func (f *CacheFiller) Fill(images *utils.ImageSet, start, stop int) (int, error) {
	chunk := f.ChunkRows
	if chunk <= 0 {
		chunk = DefaultFillChunk
	}

	// accessors open nothing until the first read
	ra := f.NewAccessor()
	rows := ra.Geometry().Rows
	ra.Close()
	if rows > 0 && stop > rows {
		stop = rows
	}
	if start < 0 || start > stop {
		return 0, fmt.Errorf("%w: invalid line range [%d, %d)", reader.ErrOutOfBounds, start, stop)
	}

	limiter := NewConcLimiter(f.Workers)
	var mu sync.Mutex
	var firstErr error
	written := 0

	for s := start; s < stop; s += chunk {
		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed {
			break
		}

		e := s + chunk
		if e > stop {
			e = stop
		}

		limiter.Increase()
		go func(s, e int) {
			defer limiter.Decrease()

			ra := f.NewAccessor()
			defer ra.Close()
			n, err := ra.FillCache(images, s, e)

			mu.Lock()
			defer mu.Unlock()
			written += n
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(s, e)
	}
	limiter.Wait()

	return written, firstErr
}
