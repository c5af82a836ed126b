package raster

// Opener opens raster datasets read-only. The GDAL implementation lives in
// package gdalraster.
type Opener interface {
	Open(path string) (Dataset, error)
}

// Dataset is an open raster file.
type Dataset interface {
	Geometry() Geometry
	// Band returns the 0-based band i.
	Band(i int) (Band, error)
	Close() error
}

// Band reads windows of one raster band.
type Band interface {
	// ReadWindow fills buf with the w*h window at (x, y) in the band's
	// data type. len(buf) must be at least w*h*DataType.Size().
	ReadWindow(x, y, w, h int, buf []byte) error
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Dataset, error)

func (f OpenerFunc) Open(path string) (Dataset, error) {
	return f(path)
}
