package reader

import (
	"fmt"

	"github.com/nci/tstack/raster"
)

// StackReader extracts full rows across an ordered list of co-registered
// images. Implementations own their file handles until Close.
type StackReader interface {
	ReadRow(row int) (*raster.RowBlock, error)
	Filenames() []string
	Close() error
}

// OpenFunc opens a StackReader bound to filenames.
type OpenFunc func(filenames []string) (StackReader, error)

// ResidentReader keeps one StackReader open across calls and rebuilds it
// only when the bound filename list changes content. It is owned by a
// single caller and is not safe for concurrent use.
type ResidentReader struct {
	open    OpenFunc
	current StackReader
	bound   []string
	Opened  int
}

func NewResidentReader(open OpenFunc) *ResidentReader {
	return &ResidentReader{open: open}
}

// NewResidentRaw builds a ResidentReader over RawStackReaders.
func NewResidentRaw(opener FileOpener, cols, bands int, dt raster.DataType) *ResidentReader {
	return NewResidentReader(func(filenames []string) (StackReader, error) {
		return OpenRawStack(opener, filenames, cols, bands, dt)
	})
}

// NewResidentLibrary builds a ResidentReader over LibraryStackReaders.
func NewResidentLibrary(opener raster.Opener) *ResidentReader {
	return NewResidentReader(func(filenames []string) (StackReader, error) {
		return OpenLibraryStack(opener, filenames)
	})
}

// Rebind makes sure the resident reader is bound to filenames. It reports
// whether a new reader had to be opened. On error no reader is bound.
func (r *ResidentReader) Rebind(filenames []string) (bool, error) {
	if r.current != nil && sameFilenames(r.bound, filenames) {
		return false, nil
	}

	r.release()
	rd, err := r.open(filenames)
	if err != nil {
		return false, err
	}
	r.current = rd
	r.bound = append([]string(nil), filenames...)
	r.Opened++
	return true, nil
}

// ReadRow rebinds to filenames if needed and reads row.
func (r *ResidentReader) ReadRow(filenames []string, row int) (*raster.RowBlock, error) {
	if _, err := r.Rebind(filenames); err != nil {
		return nil, err
	}
	return r.current.ReadRow(row)
}

// ReadBound reads row from the images of the last successful Rebind.
func (r *ResidentReader) ReadBound(row int) (*raster.RowBlock, error) {
	if r.current == nil {
		return nil, fmt.Errorf("%w: no images bound", ErrOpen)
	}
	return r.current.ReadRow(row)
}

func (r *ResidentReader) Close() error {
	return r.release()
}

func (r *ResidentReader) release() error {
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	r.bound = nil
	return err
}

func sameFilenames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
