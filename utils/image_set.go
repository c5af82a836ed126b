package utils

import (
	"fmt"
	"path/filepath"
	"time"
)

// ImageSet is the chronologically ordered list of images of one run, with
// the acquisition date and identifier of each. It must not be modified
// after construction; the slices returned by its accessors are shared.
type ImageSet struct {
	filenames []string
	dates     []time.Time
	ids       []string
}

// NewImageSet pairs filenames, dates and ids 1:1. A nil ids derives them
// with ImageIDs.
func NewImageSet(filenames []string, dates []time.Time, ids []string) (*ImageSet, error) {
	if ids == nil {
		ids = ImageIDs(filenames)
	}
	if len(dates) != len(filenames) || len(ids) != len(filenames) {
		return nil, fmt.Errorf("image set: %d filenames, %d dates and %d image IDs", len(filenames), len(dates), len(ids))
	}
	return &ImageSet{
		filenames: append([]string(nil), filenames...),
		dates:     append([]time.Time(nil), dates...),
		ids:       append([]string(nil), ids...),
	}, nil
}

func (s *ImageSet) Len() int {
	return len(s.filenames)
}

func (s *ImageSet) Filenames() []string {
	return s.filenames
}

func (s *ImageSet) Dates() []time.Time {
	return s.dates
}

func (s *ImageSet) IDs() []string {
	return s.ids
}

// ImageIDs names every image after the directory holding it, which is how
// stacked acquisitions are organised on disk (one folder per scene).
func ImageIDs(filenames []string) []string {
	ids := make([]string, len(filenames))
	for i, f := range filenames {
		ids[i] = filepath.Base(filepath.Dir(f))
	}
	return ids
}
