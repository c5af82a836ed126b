package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Shape is the logical [band, image, column] extent of a RowBlock.
type Shape struct {
	Bands  int
	Images int
	Cols   int
}

func (s Shape) Len() int {
	return s.Bands * s.Images * s.Cols
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Bands, s.Images, s.Cols)
}

// RowBlock holds one row of every image of a stack, indexed
// [band, image, column]. Data is stored in host byte order, the same way
// GDAL fills read buffers, so blocks from different readers compare
// bit for bit.
type RowBlock struct {
	Shape
	DataType DataType
	Data     []byte
}

func NewRowBlock(shape Shape, dt DataType) *RowBlock {
	return &RowBlock{
		Shape:    shape,
		DataType: dt,
		Data:     make([]byte, shape.Len()*dt.Size()),
	}
}

// Offset returns the byte offset of element [band, image, col].
func (b *RowBlock) Offset(band, image, col int) int {
	return ((band*b.Images+image)*b.Cols + col) * b.DataType.Size()
}

// Slot returns the bytes of the columns of one band of one image.
func (b *RowBlock) Slot(band, image int) []byte {
	off := b.Offset(band, image, 0)
	return b.Data[off : off+b.Cols*b.DataType.Size()]
}

// Float64At converts element [band, image, col] to float64.
func (b *RowBlock) Float64At(band, image, col int) float64 {
	off := b.Offset(band, image, col)
	p := b.Data[off : off+b.DataType.Size()]
	bo := binary.NativeEndian

	switch b.DataType {
	case Byte:
		return float64(p[0])
	case UInt16:
		return float64(bo.Uint16(p))
	case Int16:
		return float64(int16(bo.Uint16(p)))
	case UInt32:
		return float64(bo.Uint32(p))
	case Int32:
		return float64(int32(bo.Uint32(p)))
	case Float32:
		return float64(math.Float32frombits(bo.Uint32(p)))
	case Float64:
		return math.Float64frombits(bo.Uint64(p))
	default:
		return math.NaN()
	}
}

// Float64s returns all elements converted to float64 in storage order.
func (b *RowBlock) Float64s() []float64 {
	out := make([]float64, 0, b.Len())
	for ib := 0; ib < b.Bands; ib++ {
		for ii := 0; ii < b.Images; ii++ {
			for ic := 0; ic < b.Cols; ic++ {
				out = append(out, b.Float64At(ib, ii, ic))
			}
		}
	}
	return out
}

func (b *RowBlock) Equal(o *RowBlock) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.Shape == o.Shape && b.DataType == o.DataType && bytes.Equal(b.Data, o.Data)
}
