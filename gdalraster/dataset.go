// Package gdalraster implements raster.Opener on top of GDAL.
package gdalraster

// #include <stdlib.h>
// #include "gdal.h"
// #include "cpl_error.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/nci/tstack/raster"
)

// Opener opens datasets read-only through GDAL.
type Opener struct{}

func NewOpener() *Opener {
	Init()
	return &Opener{}
}

func (o *Opener) Open(path string) (raster.Dataset, error) {
	Init()

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	C.CPLErrorReset()
	hDS := C.GDALOpen(cPath, C.GA_ReadOnly)
	if hDS == nil {
		return nil, fmt.Errorf("GDAL could not open dataset %s: %s", path, lastError())
	}

	ds := &Dataset{path: path, hDS: hDS}
	ds.geometry = raster.Geometry{
		Rows:  int(C.GDALGetRasterYSize(hDS)),
		Cols:  int(C.GDALGetRasterXSize(hDS)),
		Bands: int(C.GDALGetRasterCount(hDS)),
	}
	if ds.geometry.Bands > 0 {
		// it is safe to assume all bands share the data type of band 1
		hBand := C.GDALGetRasterBand(hDS, C.int(1))
		ds.gdalType = C.GDALGetRasterDataType(hBand)
		ds.geometry.DataType = fromGDALType(ds.gdalType)
	}
	return ds, nil
}

// Dataset wraps a GDALDatasetH.
type Dataset struct {
	path     string
	hDS      C.GDALDatasetH
	gdalType C.GDALDataType
	geometry raster.Geometry
}

func (ds *Dataset) Geometry() raster.Geometry {
	return ds.geometry
}

func (ds *Dataset) Band(i int) (raster.Band, error) {
	if ds.hDS == nil {
		return nil, fmt.Errorf("dataset %s is closed", ds.path)
	}
	if i < 0 || i >= ds.geometry.Bands {
		return nil, fmt.Errorf("band %d out of range for %s (%d bands)", i+1, ds.path, ds.geometry.Bands)
	}

	hBand := C.GDALGetRasterBand(ds.hDS, C.int(i+1))
	if hBand == nil {
		return nil, fmt.Errorf("GDAL could not get band %d of %s: %s", i+1, ds.path, lastError())
	}
	return &Band{ds: ds, hBand: hBand, index: i + 1}, nil
}

func (ds *Dataset) Close() error {
	if ds.hDS != nil {
		C.GDALClose(ds.hDS)
		ds.hDS = nil
	}
	return nil
}

// Band wraps a GDALRasterBandH. It is only valid while its dataset is open.
type Band struct {
	ds    *Dataset
	hBand C.GDALRasterBandH
	index int
}

func (b *Band) ReadWindow(x, y, w, h int, buf []byte) error {
	if b.ds.hDS == nil {
		return fmt.Errorf("dataset %s is closed", b.ds.path)
	}
	size := b.ds.geometry.DataType.Size()
	if size == 0 {
		return fmt.Errorf("GDAL data type not implemented: %s", C.GoString(C.GDALGetDataTypeName(b.ds.gdalType)))
	}
	if w <= 0 || h <= 0 || len(buf) < w*h*size {
		return fmt.Errorf("invalid window %dx%d for buffer of %d bytes", w, h, len(buf))
	}

	C.CPLErrorReset()
	gdalErr := C.GDALRasterIO(b.hBand, C.GF_Read, C.int(x), C.int(y), C.int(w), C.int(h),
		unsafe.Pointer(&buf[0]), C.int(w), C.int(h), b.ds.gdalType, 0, 0)
	if gdalErr != C.CE_None {
		return fmt.Errorf("GDALRasterIO %s band %d window (%d, %d, %d, %d): %s", b.ds.path, b.index, x, y, w, h, lastError())
	}
	return nil
}

func lastError() string {
	msg := C.GoString(C.CPLGetLastErrorMsg())
	if msg == "" {
		return "unknown GDAL error"
	}
	return msg
}

func fromGDALType(t C.GDALDataType) raster.DataType {
	switch t {
	case C.GDT_Byte:
		return raster.Byte
	case C.GDT_UInt16:
		return raster.UInt16
	case C.GDT_Int16:
		return raster.Int16
	case C.GDT_UInt32:
		return raster.UInt32
	case C.GDT_Int32:
		return raster.Int32
	case C.GDT_Float32:
		return raster.Float32
	case C.GDT_Float64:
		return raster.Float64
	default:
		return raster.Unknown
	}
}
