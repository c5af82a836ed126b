package processor

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nci/tstack/cache"
	"github.com/nci/tstack/metrics"
	"github.com/nci/tstack/raster"
	"github.com/nci/tstack/reader"
	"github.com/nci/tstack/utils"
)

var ErrNoCache = errors.New("row cache is disabled")

// ReadOptions controls how a single row read uses the cache.
type ReadOptions struct {
	ReadCache     bool
	WriteCache    bool
	ValidateCache bool
}

// DefaultReadOptions takes the cache policy from the config.
func DefaultReadOptions(config *utils.Config) ReadOptions {
	return ReadOptions{
		ReadCache:     config.Cache.Read,
		WriteCache:    config.Cache.Write,
		ValidateCache: config.Cache.Validate,
	}
}

// RowAccessor reads full rows across an image set, serving them from the
// row cache when a valid entry exists and filling it otherwise. The reader
// kind is fixed at construction. A RowAccessor holds open file handles
// between calls and is meant for a single worker.
type RowAccessor struct {
	Metrics metrics.Logger

	signature string
	geometry  raster.Geometry
	useRaw    bool
	cache     *cache.RowCache
	resident  *reader.ResidentReader
	logger    *log.Logger
	verbose   bool
}

// NewRowAccessor builds an accessor for the dataset in config. rowCache may
// be nil to disable caching. fileOpener is only used by the raw reader and
// opener only by the library reader.
func NewRowAccessor(config *utils.Config, geometry raster.Geometry, rowCache *cache.RowCache, opener raster.Opener, fileOpener reader.FileOpener, logger *log.Logger) *RowAccessor {
	if logger == nil {
		logger = log.Default()
	}

	ra := &RowAccessor{
		Metrics:   metrics.NopLogger{},
		signature: cache.Signature(config.Dataset),
		geometry:  geometry,
		useRaw:    config.Dataset.UseBIPReader,
		cache:     rowCache,
		logger:    logger,
		verbose:   config.Metrics.Verbose,
	}
	if ra.useRaw {
		ra.resident = reader.NewResidentRaw(fileOpener, geometry.Cols, geometry.Bands, geometry.DataType)
	} else {
		ra.resident = reader.NewResidentLibrary(opener)
	}
	return ra
}

func (ra *RowAccessor) Geometry() raster.Geometry {
	return ra.geometry
}

// ReadRow returns row line of every image in images as a [band, image,
// column] block.
func (ra *RowAccessor) ReadRow(line int, images *utils.ImageSet, opts ReadOptions) (*raster.RowBlock, error) {
	block, _, err := ra.readRow(line, images, opts)
	return block, err
}

func (ra *RowAccessor) readRow(line int, images *utils.ImageSet, opts ReadOptions) (*raster.RowBlock, bool, error) {
	mc := metrics.NewMetricsCollector(ra.Metrics)
	defer mc.Log()
	mc.Info.Row = line
	mc.Info.NumBands = ra.geometry.Bands

	if images == nil || images.Len() == 0 {
		err := fmt.Errorf("%w: no images to read line %d from", reader.ErrOpen, line)
		mc.Info.Error = err.Error()
		return nil, false, err
	}
	mc.Info.NumImages = images.Len()

	key := cache.KeyFor(ra.signature, images.Len(), line, ra.geometry.Bands)
	shape := raster.Shape{Bands: ra.geometry.Bands, Images: images.Len(), Cols: ra.geometry.Cols}

	if opts.ReadCache {
		var expectIDs []string
		if opts.ValidateCache {
			expectIDs = images.IDs()
		}
		if block, ok := ra.cache.Read(key, shape, ra.geometry.DataType, expectIDs); ok {
			if ra.verbose {
				ra.logger.Printf("Read line %d from cache", line)
			}
			mc.Info.Source = metrics.SourceCache
			mc.Info.CacheHit = true
			return block, false, nil
		}
	}

	start := time.Now()
	rebound, err := ra.resident.Rebind(images.Filenames())
	if err != nil {
		mc.Info.Error = err.Error()
		return nil, false, err
	}
	mc.Info.Rebound = rebound

	block, err := ra.resident.ReadBound(line)
	if err != nil {
		mc.Info.Error = err.Error()
		return nil, false, err
	}
	if ra.verbose {
		ra.logger.Printf("Took %v to read line %d from %d images", time.Since(start), line, images.Len())
	}
	mc.Info.Source = ra.source()
	mc.Info.BytesRead = int64(len(block.Data))

	written := false
	if opts.WriteCache {
		written = ra.cache.Write(key, block, images.IDs())
		mc.Info.CacheWrite = written
	}
	return block, written, nil
}

func (ra *RowAccessor) source() string {
	if ra.useRaw {
		return metrics.SourceRaw
	}
	return metrics.SourceLibrary
}

// FillCache makes sure the cache holds a valid entry for every line in
// [start, stop) and returns how many entries were written. Lines that
// already have a valid entry are skipped. stop is clamped to the number of
// rows.
func (ra *RowAccessor) FillCache(images *utils.ImageSet, start, stop int) (int, error) {
	if ra.cache == nil {
		return 0, ErrNoCache
	}
	if ra.geometry.Rows > 0 && stop > ra.geometry.Rows {
		stop = ra.geometry.Rows
	}
	if start < 0 || start > stop {
		return 0, fmt.Errorf("%w: invalid line range [%d, %d)", reader.ErrOutOfBounds, start, stop)
	}

	opts := ReadOptions{ReadCache: true, WriteCache: true, ValidateCache: true}
	written := 0
	for line := start; line < stop; line++ {
		_, ok, err := ra.readRow(line, images, opts)
		if err != nil {
			return written, fmt.Errorf("filling cache at line %d: %w", line, err)
		}
		if ok {
			written++
		}
	}
	return written, nil
}

// Close releases the file handles held between reads. The row cache is
// owned by the caller and stays open.
func (ra *RowAccessor) Close() error {
	return ra.resident.Close()
}
