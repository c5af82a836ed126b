package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/nci/tstack/utils"
)

// Key identifies one cached row of a dataset. The images that produced the
// row are not part of the key; they are validated against the entry.
type Key struct {
	Signature string
	Images    int
	Row       int
	Bands     int
}

func KeyFor(signature string, images, row, bands int) Key {
	return Key{Signature: signature, Images: images, Row: row, Bands: bands}
}

// Name is the entry name within one dataset's cache directory.
func (k Key) Name() string {
	return fmt.Sprintf("tstack_r%d_n%d_b%d.row", k.Row, k.Images, k.Bands)
}

// Hash is a fixed length key unique across datasets, for shared backends.
func (k Key) Hash() string {
	sum := md5.Sum([]byte(k.Signature + "/" + k.Name()))
	return hex.EncodeToString(sum[:])
}

func (k Key) String() string {
	return k.Signature + ":" + k.Name()
}

// Signature identifies a dataset configuration for cache keys.
func Signature(ds utils.DatasetConfig) string {
	sum := md5.Sum([]byte(ds.InputFile + "\x00" + ds.CacheLineDir))
	return hex.EncodeToString(sum[:8])
}
