package reader

import (
	"errors"
	"testing"

	"github.com/nci/tstack/internal/rastertest"
	"github.com/nci/tstack/raster"
	"github.com/stretchr/testify/require"
)

func TestResidentReaderReusesHandles(t *testing.T) {
	g := raster.Geometry{Rows: 3, Cols: 2, Bands: 2, DataType: raster.Int16}
	fx := newStackFixture(t, 3, g)
	files := rastertest.NewFileOpener()
	rr := NewResidentRaw(files, g.Cols, g.Bands, g.DataType)
	defer rr.Close()

	_, err := rr.ReadRow(fx.filenames, 0)
	require.NoError(t, err)

	// a different slice with the same content must not reopen
	sameContent := append([]string(nil), fx.filenames...)
	block, err := rr.ReadRow(sameContent, 1)
	require.NoError(t, err)
	if !block.Equal(fx.expectedRow(1)) {
		t.Errorf("unexpected block %v", block.Float64s())
	}
	if files.TotalOpens() != 3 || rr.Opened != 1 {
		t.Errorf("expected a single open cycle, actual %d opens, %d cycles", files.TotalOpens(), rr.Opened)
	}

	// changing one filename forces exactly one reopen cycle
	other := newStackFixture(t, 1, g)
	changed := append([]string(nil), fx.filenames...)
	changed[1] = other.filenames[0]
	for row := 0; row < g.Rows; row++ {
		_, err := rr.ReadRow(changed, row)
		require.NoError(t, err)
	}
	if files.TotalOpens() != 6 || rr.Opened != 2 {
		t.Errorf("expected two open cycles, actual %d opens, %d cycles", files.TotalOpens(), rr.Opened)
	}
	if files.Closes != 3 {
		t.Errorf("expected the old handles to be closed, actual %d", files.Closes)
	}
}

func TestResidentReaderRebind(t *testing.T) {
	g := raster.Geometry{Rows: 2, Cols: 2, Bands: 1, DataType: raster.Float32}
	fx := newStackFixture(t, 2, g)
	rr := NewResidentLibrary(fx.opener)

	rebuilt, err := rr.Rebind(fx.filenames)
	require.NoError(t, err)
	if !rebuilt {
		t.Errorf("first bind should open a reader")
	}

	rebuilt, err = rr.Rebind([]string{fx.filenames[0], fx.filenames[1]})
	require.NoError(t, err)
	if rebuilt {
		t.Errorf("equal filename list should reuse the reader")
	}

	// a reordered list is a different image set
	rebuilt, err = rr.Rebind([]string{fx.filenames[1], fx.filenames[0]})
	require.NoError(t, err)
	if !rebuilt {
		t.Errorf("reordered list should rebuild the reader")
	}

	require.NoError(t, rr.Close())
	if fx.opener.Closes != 4 {
		t.Errorf("expected every dataset closed, actual %d", fx.opener.Closes)
	}
}

func TestResidentReaderFailedRebind(t *testing.T) {
	g := raster.Geometry{Rows: 2, Cols: 2, Bands: 1, DataType: raster.Int16}
	fx := newStackFixture(t, 2, g)
	rr := NewResidentLibrary(fx.opener)
	defer rr.Close()

	_, err := rr.ReadRow(fx.filenames, 0)
	require.NoError(t, err)

	if _, err := rr.ReadRow([]string{"/missing"}, 0); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, actual %v", err)
	}

	// the next call must not serve the old, released reader
	opens := fx.opener.TotalOpens()
	_, err = rr.ReadRow(fx.filenames, 0)
	require.NoError(t, err)
	if fx.opener.TotalOpens() != opens+2 {
		t.Errorf("expected a fresh open cycle after a failed rebind")
	}
}

func TestResidentReaderReadBound(t *testing.T) {
	g := raster.Geometry{Rows: 3, Cols: 2, Bands: 1, DataType: raster.Int16}
	fx := newStackFixture(t, 2, g)
	files := rastertest.NewFileOpener()
	rr := NewResidentRaw(files, g.Cols, g.Bands, g.DataType)
	defer rr.Close()

	if _, err := rr.ReadBound(0); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen before any bind, actual %v", err)
	}

	_, err := rr.Rebind(fx.filenames)
	require.NoError(t, err)
	for row := 0; row < g.Rows; row++ {
		block, err := rr.ReadBound(row)
		require.NoError(t, err)
		if !block.Equal(fx.expectedRow(row)) {
			t.Errorf("row %d: unexpected block %v", row, block.Float64s())
		}
	}
	if files.TotalOpens() != 2 || rr.Opened != 1 {
		t.Errorf("expected a single open cycle, actual %d opens, %d cycles", files.TotalOpens(), rr.Opened)
	}
}
