package rastertest

import (
	"io"
	"os"
	"sync"
)

// FileOpener opens files from disk and counts opens, reads, seeks and
// closes.
type FileOpener struct {
	mu     sync.Mutex
	Opens  map[string]int
	Reads  int
	Seeks  int
	Closes int
}

func NewFileOpener() *FileOpener {
	return &FileOpener{Opens: make(map[string]int)}
}

func (o *FileOpener) Open(name string) (io.ReadSeekCloser, error) {
	o.mu.Lock()
	o.Opens[name]++
	o.mu.Unlock()

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &countingFile{File: f, opener: o}, nil
}

func (o *FileOpener) TotalOpens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.Opens {
		n += c
	}
	return n
}

// TotalReads is the number of Read calls on every file handed out.
func (o *FileOpener) TotalReads() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Reads
}

type countingFile struct {
	*os.File
	opener *FileOpener
}

func (f *countingFile) Read(p []byte) (int, error) {
	f.opener.mu.Lock()
	f.opener.Reads++
	f.opener.mu.Unlock()
	return f.File.Read(p)
}

func (f *countingFile) Seek(offset int64, whence int) (int64, error) {
	f.opener.mu.Lock()
	f.opener.Seeks++
	f.opener.mu.Unlock()
	return f.File.Seek(offset, whence)
}

func (f *countingFile) Close() error {
	f.opener.mu.Lock()
	f.opener.Closes++
	f.opener.mu.Unlock()
	return f.File.Close()
}
