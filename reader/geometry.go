package reader

import (
	"fmt"

	"github.com/nci/tstack/raster"
)

// Inspect opens path read-only and returns its geometry. Every other image
// of a stack is assumed to share it.
func Inspect(opener raster.Opener, path string) (raster.Geometry, error) {
	ds, err := opener.Open(path)
	if err != nil {
		return raster.Geometry{}, fmt.Errorf("%w: could not open example image dataset %s: %v", ErrUnreadableImage, path, err)
	}
	defer ds.Close()

	g := ds.Geometry()
	if g.DataType.Size() == 0 {
		return raster.Geometry{}, fmt.Errorf("%w: %s has unsupported data type", ErrUnreadableImage, path)
	}
	return g, nil
}
