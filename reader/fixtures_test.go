package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nci/tstack/internal/rastertest"
	"github.com/nci/tstack/raster"
	"github.com/stretchr/testify/require"
)

// pixelValue is distinct for every (image, band, row, col) of a fixture.
func pixelValue(image int) func(band, row, col int) float64 {
	return func(band, row, col int) float64 {
		return float64(1000*image + 100*band + 10*row + col)
	}
}

type stackFixture struct {
	geometry  raster.Geometry
	images    []*rastertest.Image
	filenames []string
	opener    *rastertest.Opener
}

// newStackFixture writes nImages BIP files under a temp dir and registers
// the same images with an in-memory raster opener under the same paths.
func newStackFixture(t *testing.T, nImages int, g raster.Geometry) *stackFixture {
	t.Helper()
	dir := t.TempDir()
	fx := &stackFixture{geometry: g, opener: rastertest.NewOpener()}
	for i := 0; i < nImages; i++ {
		img := rastertest.NewImage(g, pixelValue(i))
		path := filepath.Join(dir, fmt.Sprintf("LT5%03d_stack.bip", i))
		require.NoError(t, img.WriteBIP(path))
		fx.opener.Add(path, img)
		fx.images = append(fx.images, img)
		fx.filenames = append(fx.filenames, path)
	}
	return fx
}

// expectedRow builds the block a reader must return for row.
func (fx *stackFixture) expectedRow(row int) *raster.RowBlock {
	g := fx.geometry
	block := raster.NewRowBlock(raster.Shape{Bands: g.Bands, Images: len(fx.images), Cols: g.Cols}, g.DataType)
	for i := range fx.images {
		for b := 0; b < g.Bands; b++ {
			for c := 0; c < g.Cols; c++ {
				rastertest.PutValue(g.DataType, block.Data[block.Offset(b, i, c):], pixelValue(i)(b, row, c))
			}
		}
	}
	return block
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}
