package gdalraster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nci/tstack/raster"
	"github.com/nci/tstack/reader"
)

const enviHeader = `ENVI
samples = %d
lines = %d
bands = %d
header offset = 0
file type = ENVI Standard
data type = 2
interleave = bip
byte order = 0
`

// writeENVIStack writes an Int16 BIP image with an ENVI header so that the
// same file can be read raw and through GDAL.
func writeENVIStack(t *testing.T, dir string, idx, rows, cols, bands int) string {
	path := filepath.Join(dir, fmt.Sprintf("LT5_%d_stack", idx))
	buf := make([]byte, 0, rows*cols*bands*2)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			for b := 0; b < bands; b++ {
				buf = binary.LittleEndian.AppendUint16(buf, uint16(1000*idx+100*b+10*r+c))
			}
		}
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}
	hdr := fmt.Sprintf(enviHeader, cols, rows, bands)
	if err := os.WriteFile(path+".hdr", []byte(hdr), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGDALAgreesWithRawReader(t *testing.T) {
	if binary.NativeEndian.Uint16([]byte{1, 0}) != 1 {
		t.Skip("fixture is little-endian")
	}

	dir := t.TempDir()
	rows, cols, bands := 3, 4, 2
	var files []string
	for i := 0; i < 3; i++ {
		files = append(files, writeENVIStack(t, dir, i, rows, cols, bands))
	}

	opener := NewOpener()
	g, err := reader.Inspect(opener, files[0])
	if err != nil {
		t.Skipf("GDAL ENVI driver unavailable: %v", err)
	}
	expected := raster.Geometry{Rows: rows, Cols: cols, Bands: bands, DataType: raster.Int16}
	if g != expected {
		t.Fatalf("expected %v, actual %v", expected, g)
	}

	lib, err := reader.OpenLibraryStack(opener, files)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()
	raw, err := reader.OpenRawStack(nil, files, cols, bands, raster.Int16)
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()

	for row := 0; row < rows; row++ {
		a, err := lib.ReadRow(row)
		if err != nil {
			t.Fatal(err)
		}
		b, err := raw.ReadRow(row)
		if err != nil {
			t.Fatal(err)
		}
		if !a.Equal(b) {
			t.Errorf("row %d: GDAL %v, raw %v", row, a.Float64s(), b.Float64s())
		}
	}

	if _, err := lib.ReadRow(rows); !errors.Is(err, reader.ErrBandRead) {
		t.Errorf("expected ErrBandRead, actual %v", err)
	}

	ts, err := reader.ReadPixelTimeseries(opener, files, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v := ts.Float64At(1, 2, 0); v != 2000+100+20+1 {
		t.Errorf("unexpected pixel value %v", v)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := NewOpener().Open(filepath.Join(t.TempDir(), "missing.tif"))
	if err == nil {
		t.Errorf("expected error opening a missing file")
	}
}
