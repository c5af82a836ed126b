package main

import (
	"fmt"

	"github.com/nci/tstack/cache"
	"github.com/nci/tstack/gdalraster"
	"github.com/nci/tstack/metrics"
	"github.com/nci/tstack/processor"
	"github.com/nci/tstack/raster"
	"github.com/nci/tstack/reader"
	"github.com/nci/tstack/utils"
)

// dataset is everything a command needs to read one configured stack.
type dataset struct {
	config   *utils.Config
	images   *utils.ImageSet
	geometry raster.Geometry
	opener   raster.Opener
	cache    *cache.RowCache
	metrics  metrics.Logger
}

func openDataset(configFile string, verbose bool) (*dataset, error) {
	if configFile == "" {
		return nil, fmt.Errorf("a dataset config file is required (-c)")
	}
	config, err := utils.LoadConfigFile(configFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		config.Metrics.Verbose = true
	}

	ds := &dataset{config: config, opener: gdalraster.NewOpener()}
	ds.images, err = utils.ReadInputCSV(config.Dataset.InputFile, config.Dataset.DateFormat, config.Dataset.ImageIDColumn)
	if err != nil {
		return nil, err
	}
	if ds.images.Len() == 0 {
		return nil, fmt.Errorf("input file %s lists no images", config.Dataset.InputFile)
	}

	if g, ok := config.Dataset.PinnedGeometry(); ok {
		ds.geometry = g
	} else {
		first := ds.images.Filenames()[0]
		g, err := reader.Inspect(ds.opener, first)
		if err != nil {
			Error.Fatalf("Could not determine stack geometry from %s: %v", first, err)
		}
		ds.geometry = config.Dataset.Geometry(g)
	}
	if config.Metrics.Verbose {
		Info.Printf("%d images, geometry %v", ds.images.Len(), ds.geometry)
	}

	backend, err := cache.NewBackend(config)
	if err != nil {
		return nil, err
	}
	if disk, ok := backend.(*cache.DiskBackend); ok {
		if err := disk.Writable(); err != nil {
			Error.Printf("Cache line directory %s is not writable, row caching disabled: %v", disk.Dir, err)
			backend = nil
		} else if config.Metrics.Verbose {
			Info.Printf("Caching rows in %s", disk.Dir)
		}
	}
	ds.cache = cache.NewRowCache(backend, Info, config.Metrics.Verbose)

	m := config.Metrics
	ds.metrics, err = metrics.NewLogger(m.LogDir, m.MaxLogFileSize, m.MaxLogFiles, m.Verbose)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (ds *dataset) rowAccessor() *processor.RowAccessor {
	ra := processor.NewRowAccessor(ds.config, ds.geometry, ds.cache, ds.opener, reader.OSFileOpener{}, Info)
	ra.Metrics = ds.metrics
	return ra
}

func (ds *dataset) Close() {
	if fl, ok := ds.metrics.(*metrics.FileLogger); ok {
		fl.Close()
	}
	if err := ds.cache.Close(); err != nil {
		Error.Printf("closing row cache: %v", err)
	}
}
