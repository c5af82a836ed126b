package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// DiskBackend keeps one file per entry in a directory, created on first
// write. Files are replaced atomically so readers never see a partial entry.
type DiskBackend struct {
	Dir string
}

func NewDiskBackend(dir string) *DiskBackend {
	return &DiskBackend{Dir: dir}
}

func (d *DiskBackend) path(key Key) string {
	return filepath.Join(d.Dir, key.Name())
}

func (d *DiskBackend) Get(key Key) ([]byte, error) {
	data, err := os.ReadFile(d.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (d *DiskBackend) Put(key Key, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	return atomic.WriteFile(d.path(key), bytes.NewReader(data))
}

func (d *DiskBackend) Delete(key Key) error {
	err := os.Remove(d.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Writable checks that entries can be created in Dir.
func (d *DiskBackend) Writable() error {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(d.Dir, ".tstack_write_")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (d *DiskBackend) Close() error {
	return nil
}
