package reader

import (
	"fmt"

	"github.com/nci/tstack/raster"
)

// LibraryStackReader reads rows through a raster.Opener, keeping every
// dataset and its band handles open between rows.
type LibraryStackReader struct {
	filenames []string
	geometry  raster.Geometry
	datasets  []raster.Dataset
	bands     [][]raster.Band
}

// OpenLibraryStack opens every file and resolves its bands once. The
// geometry of the first dataset sizes every read.
func OpenLibraryStack(opener raster.Opener, filenames []string) (*LibraryStackReader, error) {
	if len(filenames) == 0 {
		return nil, fmt.Errorf("%w: empty image list", ErrOpen)
	}

	rd := &LibraryStackReader{filenames: append([]string(nil), filenames...)}
	for i, name := range filenames {
		ds, err := opener.Open(name)
		if err != nil {
			rd.Close()
			return nil, fmt.Errorf("%w: GDAL could not open dataset %s: %v", ErrOpen, name, err)
		}
		rd.datasets = append(rd.datasets, ds)

		if i == 0 {
			rd.geometry = ds.Geometry()
		}

		bands := make([]raster.Band, rd.geometry.Bands)
		for b := range bands {
			bands[b], err = ds.Band(b)
			if err != nil {
				rd.Close()
				return nil, fmt.Errorf("%w: %s band %d: %v", ErrOpen, name, b+1, err)
			}
		}
		rd.bands = append(rd.bands, bands)
	}
	return rd, nil
}

func (rd *LibraryStackReader) Filenames() []string {
	return rd.filenames
}

func (rd *LibraryStackReader) Geometry() raster.Geometry {
	return rd.geometry
}

// ReadRow issues one (0, row, cols, 1) window read per band per image.
func (rd *LibraryStackReader) ReadRow(row int) (*raster.RowBlock, error) {
	g := rd.geometry
	block := raster.NewRowBlock(raster.Shape{Bands: g.Bands, Images: len(rd.datasets), Cols: g.Cols}, g.DataType)
	for i, bands := range rd.bands {
		for b, band := range bands {
			if err := band.ReadWindow(0, row, g.Cols, 1, block.Slot(b, i)); err != nil {
				return nil, fmt.Errorf("%w: %s band %d row %d: %v", ErrBandRead, rd.filenames[i], b+1, row, err)
			}
		}
	}
	return block, nil
}

func (rd *LibraryStackReader) Close() error {
	var firstErr error
	for _, ds := range rd.datasets {
		if err := ds.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	rd.datasets = nil
	rd.bands = nil
	return firstErr
}
