package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/nci/tstack/raster"
)

// Entry format constants.
const (
	entryMagic      = "TSR1"
	entryVersion    = 1
	entryHeaderSize = 4 + 2 + 2 + 4*4
)

var (
	ErrBadEntry        = errors.New("bad cache entry")
	ErrShapeMismatch   = errors.New("cache entry shape mismatch")
	ErrImageIDMismatch = errors.New("cache entry built from different images")
)

// Entry is a decoded cached row with the IDs of the images it was read from.
type Entry struct {
	Shape    raster.Shape
	DataType raster.DataType
	ImageIDs []string
	Data     []byte
}

func (e *Entry) Block() *raster.RowBlock {
	return &raster.RowBlock{Shape: e.Shape, DataType: e.DataType, Data: e.Data}
}

// Validate checks the entry against the requested layout and, when
// expectIDs is not nil, against the image IDs of the current image set.
func (e *Entry) Validate(shape raster.Shape, dt raster.DataType, expectIDs []string) error {
	if e.Shape != shape || e.DataType != dt {
		return fmt.Errorf("%w: %v %v versus %v %v", ErrShapeMismatch, e.Shape, e.DataType, shape, dt)
	}
	if expectIDs == nil {
		return nil
	}
	if len(expectIDs) != len(e.ImageIDs) {
		return fmt.Errorf("%w: %d cached image IDs, %d requested", ErrImageIDMismatch, len(e.ImageIDs), len(expectIDs))
	}
	for i := range expectIDs {
		if expectIDs[i] != e.ImageIDs[i] {
			return fmt.Errorf("%w: image %d is %q in cache, %q requested", ErrImageIDMismatch, i, e.ImageIDs[i], expectIDs[i])
		}
	}
	return nil
}

// Encode serialises a row block and its image IDs. Element data is copied
// as is, so entries are only portable between hosts of the same byte order.
func Encode(block *raster.RowBlock, ids []string) ([]byte, error) {
	if len(block.Data) != block.Len()*block.DataType.Size() {
		return nil, fmt.Errorf("row block holds %d bytes, shape %v needs %d", len(block.Data), block.Shape, block.Len()*block.DataType.Size())
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	hdr := make([]byte, entryHeaderSize)
	copy(hdr[0:4], entryMagic)
	le.PutUint16(hdr[4:6], entryVersion)
	le.PutUint16(hdr[6:8], uint16(block.DataType))
	le.PutUint32(hdr[8:12], uint32(block.Bands))
	le.PutUint32(hdr[12:16], uint32(block.Images))
	le.PutUint32(hdr[16:20], uint32(block.Cols))
	le.PutUint32(hdr[20:24], uint32(len(ids)))
	buf.Write(hdr)

	for _, id := range ids {
		if len(id) > math.MaxUint16 {
			return nil, fmt.Errorf("image ID too long for cache: %d bytes", len(id))
		}
		buf.Write(le.AppendUint16(nil, uint16(len(id))))
		buf.WriteString(id)
	}

	buf.Write(le.AppendUint64(nil, uint64(len(block.Data))))
	buf.Write(block.Data)
	return buf.Bytes(), nil
}

// Decode parses an encoded entry. Any inconsistency returns ErrBadEntry.
func Decode(p []byte) (*Entry, error) {
	le := binary.LittleEndian
	if len(p) < entryHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadEntry, len(p))
	}
	if string(p[0:4]) != entryMagic {
		return nil, fmt.Errorf("%w: invalid magic", ErrBadEntry)
	}
	if v := le.Uint16(p[4:6]); v != entryVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadEntry, v)
	}

	e := &Entry{
		DataType: raster.DataType(le.Uint16(p[6:8])),
		Shape: raster.Shape{
			Bands:  int(le.Uint32(p[8:12])),
			Images: int(le.Uint32(p[12:16])),
			Cols:   int(le.Uint32(p[16:20])),
		},
	}
	if e.DataType.Size() == 0 {
		return nil, fmt.Errorf("%w: data type %d", ErrBadEntry, e.DataType)
	}

	nIDs := int(le.Uint32(p[20:24]))
	rest := p[entryHeaderSize:]
	if nIDs > len(rest)/2 {
		return nil, fmt.Errorf("%w: %d image IDs in %d bytes", ErrBadEntry, nIDs, len(rest))
	}
	e.ImageIDs = make([]string, nIDs)
	for i := range e.ImageIDs {
		if len(rest) < 2 {
			return nil, fmt.Errorf("%w: truncated image IDs", ErrBadEntry)
		}
		n := int(le.Uint16(rest))
		rest = rest[2:]
		if len(rest) < n {
			return nil, fmt.Errorf("%w: truncated image IDs", ErrBadEntry)
		}
		e.ImageIDs[i] = string(rest[:n])
		rest = rest[n:]
	}

	if len(rest) < 8 {
		return nil, fmt.Errorf("%w: missing data length", ErrBadEntry)
	}
	dataLen := le.Uint64(rest)
	rest = rest[8:]
	expected := uint64(e.Shape.Len()) * uint64(e.DataType.Size())
	if dataLen != expected || uint64(len(rest)) != dataLen {
		return nil, fmt.Errorf("%w: %d data bytes, header %d, shape %v needs %d", ErrBadEntry, len(rest), dataLen, e.Shape, expected)
	}
	e.Data = append([]byte(nil), rest...)
	return e, nil
}
