// Package cache persists extracted row blocks so that repeated runs over
// the same image stack skip disk reads.
//
// Reading is a three step pipeline: Lookup fetches and decodes an entry,
// Entry.Validate checks it against the requested layout and image IDs, and
// on a miss the caller reads from disk and fills the cache with Write. The
// cache is an optimisation only: every failure inside it degrades to a miss
// or a skipped write, never to an error for the caller.
package cache

import (
	"errors"
	"log"

	"github.com/nci/tstack/raster"
)

// RowCache is a read-through row cache over a Backend. A nil *RowCache is
// valid and always misses.
type RowCache struct {
	backend Backend
	logger  *log.Logger
	verbose bool
}

func NewRowCache(backend Backend, logger *log.Logger, verbose bool) *RowCache {
	if backend == nil {
		return nil
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RowCache{backend: backend, logger: logger, verbose: verbose}
}

func (c *RowCache) Backend() Backend {
	if c == nil {
		return nil
	}
	return c.backend
}

// Lookup returns the decoded entry for key. Absent and undecodable entries
// are both misses; the latter are logged.
func (c *RowCache) Lookup(key Key) (*Entry, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Printf("row cache: reading %v: %v", key, err)
		} else if c.verbose {
			c.logger.Printf("row cache: no entry for %v", key)
		}
		return nil, false
	}

	entry, err := Decode(data)
	if err != nil {
		c.logger.Printf("row cache: ignoring entry %v: %v", key, err)
		return nil, false
	}
	return entry, true
}

// Read looks key up and validates it. expectIDs is nil when the image IDs
// should not be checked.
func (c *RowCache) Read(key Key, shape raster.Shape, dt raster.DataType, expectIDs []string) (*raster.RowBlock, bool) {
	entry, ok := c.Lookup(key)
	if !ok {
		return nil, false
	}

	if err := entry.Validate(shape, dt, expectIDs); err != nil {
		if errors.Is(err, ErrShapeMismatch) {
			c.logger.Printf("Warning: data from cache file does not meet size requested: %v", err)
		} else if c.verbose {
			c.logger.Printf("row cache: %v: %v", key, err)
		}
		return nil, false
	}

	if c.verbose {
		c.logger.Printf("row cache: read %v", key)
	}
	return entry.Block(), true
}

// Write stores block and the IDs of the images it was read from, replacing
// any previous entry. Failures are logged and reported as false.
func (c *RowCache) Write(key Key, block *raster.RowBlock, ids []string) bool {
	if c == nil {
		return false
	}

	data, err := Encode(block, ids)
	if err != nil {
		c.logger.Printf("row cache: encoding %v: %v", key, err)
		return false
	}
	if err := c.backend.Put(key, data); err != nil {
		c.logger.Printf("row cache: could not write %v: %v", key, err)
		return false
	}

	if c.verbose {
		c.logger.Printf("row cache: wrote %v (%d bytes)", key, len(data))
	}
	return true
}

func (c *RowCache) Delete(key Key) error {
	if c == nil {
		return nil
	}
	return c.backend.Delete(key)
}

func (c *RowCache) Close() error {
	if c == nil {
		return nil
	}
	return c.backend.Close()
}
