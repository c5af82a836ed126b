// Package rastertest provides an in-memory raster.Opener with call counters
// for tests.
package rastertest

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/nci/tstack/raster"
)

// Image is the content of one in-memory raster, one byte slice per band
// holding Rows*Cols elements row by row.
type Image struct {
	Geometry raster.Geometry
	Bands    [][]byte
}

// NewImage builds an image whose element [band, row, col] is value(band, row, col).
func NewImage(g raster.Geometry, value func(band, row, col int) float64) *Image {
	img := &Image{Geometry: g, Bands: make([][]byte, g.Bands)}
	size := g.DataType.Size()
	for b := 0; b < g.Bands; b++ {
		img.Bands[b] = make([]byte, g.Rows*g.Cols*size)
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Cols; c++ {
				PutValue(g.DataType, img.Bands[b][(r*g.Cols+c)*size:], value(b, r, c))
			}
		}
	}
	return img
}

// PutValue encodes v as dt into p using host byte order.
func PutValue(dt raster.DataType, p []byte, v float64) {
	bo := binary.NativeEndian
	switch dt {
	case raster.Byte:
		p[0] = uint8(v)
	case raster.UInt16:
		bo.PutUint16(p, uint16(v))
	case raster.Int16:
		bo.PutUint16(p, uint16(int16(v)))
	case raster.UInt32:
		bo.PutUint32(p, uint32(v))
	case raster.Int32:
		bo.PutUint32(p, uint32(int32(v)))
	case raster.Float32:
		bo.PutUint32(p, math.Float32bits(float32(v)))
	case raster.Float64:
		bo.PutUint64(p, math.Float64bits(v))
	}
}

// BIP returns the image as a flat band-interleaved-by-pixel byte stream.
func (img *Image) BIP() []byte {
	g := img.Geometry
	size := g.DataType.Size()
	out := make([]byte, 0, g.Rows*g.Cols*g.Bands*size)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			for b := 0; b < g.Bands; b++ {
				off := (r*g.Cols + c) * size
				out = append(out, img.Bands[b][off:off+size]...)
			}
		}
	}
	return out
}

// WriteBIP writes the image to path as a raw BIP file.
func (img *Image) WriteBIP(path string) error {
	return os.WriteFile(path, img.BIP(), 0644)
}

// Opener serves Images by path and counts calls.
type Opener struct {
	mu     sync.Mutex
	images map[string]*Image

	Opens       map[string]int
	WindowReads int
	Closes      int
	// FailRead makes every ReadWindow call fail when set.
	FailRead bool
}

func NewOpener() *Opener {
	return &Opener{images: make(map[string]*Image), Opens: make(map[string]int)}
}

func (o *Opener) Add(path string, img *Image) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.images[path] = img
}

// TotalOpens is the number of successful and failed Open calls.
func (o *Opener) TotalOpens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.Opens {
		n += c
	}
	return n
}

func (o *Opener) Open(path string) (raster.Dataset, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Opens[path]++
	img, ok := o.images[path]
	if !ok {
		return nil, fmt.Errorf("rastertest: no such image: %s", path)
	}
	return &dataset{opener: o, img: img}, nil
}

type dataset struct {
	opener *Opener
	img    *Image
	closed bool
}

func (d *dataset) Geometry() raster.Geometry {
	return d.img.Geometry
}

func (d *dataset) Band(i int) (raster.Band, error) {
	if i < 0 || i >= d.img.Geometry.Bands {
		return nil, fmt.Errorf("rastertest: band %d out of range", i)
	}
	return &band{ds: d, data: d.img.Bands[i]}, nil
}

func (d *dataset) Close() error {
	if d.closed {
		return fmt.Errorf("rastertest: dataset closed twice")
	}
	d.closed = true
	d.opener.mu.Lock()
	d.opener.Closes++
	d.opener.mu.Unlock()
	return nil
}

type band struct {
	ds   *dataset
	data []byte
}

func (b *band) ReadWindow(x, y, w, h int, buf []byte) error {
	o := b.ds.opener
	o.mu.Lock()
	o.WindowReads++
	fail := o.FailRead
	o.mu.Unlock()

	g := b.ds.img.Geometry
	if fail {
		return fmt.Errorf("rastertest: injected read failure")
	}
	if b.ds.closed {
		return fmt.Errorf("rastertest: read on closed dataset")
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > g.Cols || y+h > g.Rows {
		return fmt.Errorf("rastertest: window (%d,%d,%d,%d) outside %dx%d", x, y, w, h, g.Cols, g.Rows)
	}
	size := g.DataType.Size()
	if len(buf) < w*h*size {
		return io.ErrShortBuffer
	}
	for r := 0; r < h; r++ {
		src := ((y+r)*g.Cols + x) * size
		copy(buf[r*w*size:(r+1)*w*size], b.data[src:src+w*size])
	}
	return nil
}
