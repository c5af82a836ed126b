package reader

import "errors"

// Errors returned by the stack readers. All of them are fatal for the
// requested row or pixel; callers must not continue with partial data.
var (
	// ErrUnreadableImage means no geometry can be derived from an image.
	ErrUnreadableImage = errors.New("unreadable image")
	// ErrOpen means a stack could not be opened. Nothing is left open.
	ErrOpen = errors.New("open failed")
	// ErrShortRead means a raw file returned fewer elements than a row needs.
	ErrShortRead = errors.New("short read")
	// ErrBandRead means a windowed band read failed.
	ErrBandRead = errors.New("band read failed")
	// ErrOutOfBounds means a pixel or band lies outside the image.
	ErrOutOfBounds = errors.New("out of bounds")
)
