package reader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nci/tstack/raster"
)

// FileOpener opens the raw files of a BIP stack.
type FileOpener interface {
	Open(name string) (io.ReadSeekCloser, error)
}

// OSFileOpener opens files with os.Open.
type OSFileOpener struct{}

func (OSFileOpener) Open(name string) (io.ReadSeekCloser, error) {
	return os.Open(name)
}

type rawFile struct {
	name string
	r    io.ReadSeekCloser
	pos  int64
}

// RawStackReader reads rows from flat band-interleaved-by-pixel files.
// Every file holds Rows*Cols*Bands elements; one row is Cols*Bands
// contiguous elements and rows are stored top to bottom.
type RawStackReader struct {
	filenames []string
	cols      int
	bands     int
	dataType  raster.DataType
	files     []*rawFile
	buf       []byte
}

// OpenRawStack opens one handle per file. If any open fails the handles
// already opened are closed again.
func OpenRawStack(opener FileOpener, filenames []string, cols, bands int, dt raster.DataType) (*RawStackReader, error) {
	if opener == nil {
		opener = OSFileOpener{}
	}
	if len(filenames) == 0 {
		return nil, fmt.Errorf("%w: empty image list", ErrOpen)
	}
	if cols <= 0 || bands <= 0 || dt.Size() == 0 {
		return nil, fmt.Errorf("%w: invalid BIP geometry cols=%d bands=%d type=%v", ErrOpen, cols, bands, dt)
	}

	rd := &RawStackReader{
		filenames: append([]string(nil), filenames...),
		cols:      cols,
		bands:     bands,
		dataType:  dt,
		buf:       make([]byte, cols*bands*dt.Size()),
	}
	for _, name := range filenames {
		r, err := opener.Open(name)
		if err != nil {
			rd.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrOpen, name, err)
		}
		rd.files = append(rd.files, &rawFile{name: name, r: r})
	}
	return rd, nil
}

func (rd *RawStackReader) Filenames() []string {
	return rd.filenames
}

// ReadRow returns row as a [band, image, column] block.
func (rd *RawStackReader) ReadRow(row int) (*raster.RowBlock, error) {
	if row < 0 {
		return nil, fmt.Errorf("%w: negative row %d", ErrShortRead, row)
	}

	size := rd.dataType.Size()
	rowBytes := int64(len(rd.buf))
	offset := int64(row) * rowBytes

	block := raster.NewRowBlock(raster.Shape{Bands: rd.bands, Images: len(rd.files), Cols: rd.cols}, rd.dataType)
	for i, f := range rd.files {
		if err := f.seek(offset); err != nil {
			return nil, fmt.Errorf("%w: seek %s to row %d: %v", ErrShortRead, f.name, row, err)
		}

		n, err := io.ReadFull(f.r, rd.buf)
		f.pos += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: %s row %d: read %d of %d elements", ErrShortRead, f.name, row, n/size, rd.cols*rd.bands)
			}
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrShortRead, f.name, row, err)
		}

		// [column, band] on disk to [band, column] in the block
		for b := 0; b < rd.bands; b++ {
			slot := block.Slot(b, i)
			for c := 0; c < rd.cols; c++ {
				src := (c*rd.bands + b) * size
				copy(slot[c*size:(c+1)*size], rd.buf[src:src+size])
			}
		}
	}
	return block, nil
}

// seek moves relative to the tracked position, skipping the call when the
// handle is already there, as it is for sequential rows.
func (f *rawFile) seek(offset int64) error {
	if offset == f.pos {
		return nil
	}
	pos, err := f.r.Seek(offset-f.pos, io.SeekCurrent)
	if err != nil {
		return err
	}
	f.pos = pos
	return nil
}

func (rd *RawStackReader) Close() error {
	var firstErr error
	for _, f := range rd.files {
		if err := f.r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	rd.files = nil
	return firstErr
}
