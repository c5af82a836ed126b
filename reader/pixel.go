package reader

import (
	"fmt"

	"github.com/nci/tstack/raster"
)

// ReadPixelTimeseries returns every band of pixel (px, py) for each image in
// order as a [band, image, 1] block. Images are opened one at a time and
// closed straight after; nothing is cached.
func ReadPixelTimeseries(opener raster.Opener, filenames []string, px, py int) (*raster.RowBlock, error) {
	if len(filenames) == 0 {
		return nil, fmt.Errorf("%w: empty image list", ErrOpen)
	}

	g, err := Inspect(opener, filenames[0])
	if err != nil {
		return nil, err
	}

	if px < 0 || px >= g.Cols || py < 0 || py >= g.Rows {
		return nil, fmt.Errorf("%w: row/column %d/%d is outside of image (nrow/ncol: %d/%d)", ErrOutOfBounds, py, px, g.Rows, g.Cols)
	}

	block := raster.NewRowBlock(raster.Shape{Bands: g.Bands, Images: len(filenames), Cols: 1}, g.DataType)
	for i, name := range filenames {
		if err := readPixel(opener, name, px, py, g.Bands, block, i); err != nil {
			return nil, err
		}
	}
	return block, nil
}

func readPixel(opener raster.Opener, name string, px, py, nBands int, block *raster.RowBlock, image int) error {
	ds, err := opener.Open(name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOpen, name, err)
	}
	defer ds.Close()

	for b := 0; b < nBands; b++ {
		band, err := ds.Band(b)
		if err != nil {
			return fmt.Errorf("%w: %s band %d: %v", ErrBandRead, name, b+1, err)
		}
		if err := band.ReadWindow(px, py, 1, 1, block.Slot(b, image)); err != nil {
			return fmt.Errorf("%w: %s band %d pixel %d/%d: %v", ErrBandRead, name, b+1, px, py, err)
		}
	}
	return nil
}

// ReadImage reads whole bands of one image. bands are 1-based; nil or empty
// reads every band. The result is laid out [band, 1, row*cols].
func ReadImage(opener raster.Opener, path string, bands []int) (*raster.RowBlock, raster.Geometry, error) {
	ds, err := opener.Open(path)
	if err != nil {
		return nil, raster.Geometry{}, fmt.Errorf("%w: could not read image %s: %v", ErrOpen, path, err)
	}
	defer ds.Close()

	g := ds.Geometry()
	if len(bands) == 0 {
		bands = make([]int, g.Bands)
		for i := range bands {
			bands[i] = i + 1
		}
	}
	for _, b := range bands {
		if b < 1 || b > g.Bands {
			return nil, g, fmt.Errorf("%w: image %s (%d bands) does not contain bands specified (requested %v)", ErrOutOfBounds, path, g.Bands, bands)
		}
	}

	block := raster.NewRowBlock(raster.Shape{Bands: len(bands), Images: 1, Cols: g.Rows * g.Cols}, g.DataType)
	for i, b := range bands {
		band, err := ds.Band(b - 1)
		if err != nil {
			return nil, g, fmt.Errorf("%w: %s band %d: %v", ErrBandRead, path, b, err)
		}
		if err := band.ReadWindow(0, 0, g.Cols, g.Rows, block.Slot(i, 0)); err != nil {
			return nil, g, fmt.Errorf("%w: %s band %d: %v", ErrBandRead, path, b, err)
		}
	}
	return block, g, nil
}
