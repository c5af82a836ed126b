package raster

import (
	"fmt"
	"strings"
)

// DataType is the pixel type of a raster band. Names follow GDAL.
type DataType int

const (
	Unknown DataType = iota
	Byte
	UInt16
	Int16
	UInt32
	Int32
	Float32
	Float64
)

var dataTypeNames = map[DataType]string{
	Byte:    "Byte",
	UInt16:  "UInt16",
	Int16:   "Int16",
	UInt32:  "UInt32",
	Int32:   "Int32",
	Float32: "Float32",
	Float64: "Float64",
}

// Size returns the size in bytes of one element, or 0 for Unknown.
func (dt DataType) Size() int {
	switch dt {
	case Byte:
		return 1
	case UInt16, Int16:
		return 2
	case UInt32, Int32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

func (dt DataType) String() string {
	if name, ok := dataTypeNames[dt]; ok {
		return name
	}
	return "Unknown"
}

func (dt DataType) MarshalText() ([]byte, error) {
	return []byte(dt.String()), nil
}

func (dt *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// ParseDataType accepts GDAL type names case-insensitively.
func ParseDataType(name string) (DataType, error) {
	for dt, n := range dataTypeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return dt, nil
		}
	}
	return Unknown, fmt.Errorf("unsupported data type: %q", name)
}

// Geometry is the shape shared by every image of a stack.
type Geometry struct {
	Rows     int      `json:"rows"`
	Cols     int      `json:"cols"`
	Bands    int      `json:"bands"`
	DataType DataType `json:"data_type"`
}

func (g Geometry) String() string {
	return fmt.Sprintf("rows=%d cols=%d bands=%d type=%s", g.Rows, g.Cols, g.Bands, g.DataType)
}
