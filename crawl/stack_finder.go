// Package crawl discovers stacked images on disk and writes the input CSV
// that a dataset config points at.
package crawl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	goeval "github.com/edisonguo/govaluate"
	"github.com/nci/tstack/utils"
)

var ErrNoImages = errors.New("no stack images found")

// StackPattern describes how stacks are laid out under a location: one
// folder per acquisition, holding one stacked image, with the acquisition
// date embedded in the folder name.
type StackPattern struct {
	FolderPattern  string
	ImagePattern   string
	DateIndexStart int
	DateIndexEnd   int
	DateFormat     string
	// Folders whose names contain any of these are skipped.
	Ignore []string
	// Filter is an optional boolean expression over path, folder, date
	// (YYYY-MM-DD), year and doy, e.g. "year >= 2000 && folder =~ '^LT5'".
	Filter string
}

// DefaultStackPattern matches Landsat scene folders such as
// LT50120312000010AAA02 holding an LT5..._stack image.
func DefaultStackPattern() StackPattern {
	return StackPattern{
		FolderPattern:  "L*",
		ImagePattern:   "L*stack",
		DateIndexStart: 9,
		DateIndexEnd:   16,
		DateFormat:     utils.DefaultDateFormat,
		Ignore:         []string{"YATSM"},
	}
}

type stackImage struct {
	folder string
	path   string
	date   time.Time
}

// FindStackImages looks one level below location for stack folders and the
// image inside each. The result is sorted by date; folder names become the
// image IDs.
func FindStackImages(location string, pattern StackPattern) (*utils.ImageSet, error) {
	layout, err := utils.GoDateLayout(pattern.DateFormat)
	if err != nil {
		return nil, err
	}
	if pattern.DateIndexStart < 0 || pattern.DateIndexEnd <= pattern.DateIndexStart {
		return nil, fmt.Errorf("invalid date index range [%d, %d)", pattern.DateIndexStart, pattern.DateIndexEnd)
	}
	expr, err := parseFilterExpression(pattern.Filter)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, err
	}

	var images []stackImage
	for _, entry := range entries {
		name := entry.Name()
		if !isDir(location, entry) || ignored(name, pattern.Ignore) {
			continue
		}
		if ok, err := filepath.Match(pattern.FolderPattern, name); err != nil {
			return nil, fmt.Errorf("folder pattern %q: %v", pattern.FolderPattern, err)
		} else if !ok {
			continue
		}

		path, err := findImage(filepath.Join(location, name), pattern.ImagePattern)
		if err != nil {
			return nil, err
		}

		if len(name) < pattern.DateIndexEnd {
			return nil, fmt.Errorf("folder %s is too short to hold a date at [%d:%d]", name, pattern.DateIndexStart, pattern.DateIndexEnd)
		}
		date, err := time.Parse(layout, name[pattern.DateIndexStart:pattern.DateIndexEnd])
		if err != nil {
			return nil, fmt.Errorf("folder %s: parsing date: %v", name, err)
		}

		img := stackImage{folder: name, path: path, date: date}
		if expr != nil {
			keep, err := evalFilter(expr, img)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%w with image and folder patterns: %s, %s", ErrNoImages, pattern.ImagePattern, pattern.FolderPattern)
	}

	sort.SliceStable(images, func(i, j int) bool { return images[i].date.Before(images[j].date) })

	filenames := make([]string, len(images))
	dates := make([]time.Time, len(images))
	ids := make([]string, len(images))
	for i, img := range images {
		filenames[i] = img.path
		dates[i] = img.date
		ids[i] = img.folder
	}
	return utils.NewImageSet(filenames, dates, ids)
}

func isDir(location string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	// follow symlinked scene folders
	if entry.Type()&os.ModeSymlink != 0 {
		fi, err := os.Stat(filepath.Join(location, entry.Name()))
		return err == nil && fi.IsDir()
	}
	return false
}

func ignored(name string, ignore []string) bool {
	for _, s := range ignore {
		if s != "" && strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// findImage returns the single file in folder matching pattern.
func findImage(folder, pattern string) (string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", err
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return "", fmt.Errorf("image pattern %q: %v", pattern, err)
		}
		if ok {
			found = append(found, filepath.Join(folder, entry.Name()))
		}
	}

	if len(found) != 1 {
		return "", fmt.Errorf("inconsistent number of stack folders and stack images: %d images matching %q in %s", len(found), pattern, folder)
	}
	return found[0], nil
}

func parseFilterExpression(filter string) (*goeval.EvaluableExpression, error) {
	if len(strings.TrimSpace(filter)) == 0 {
		return nil, nil
	}

	expr, err := goeval.NewEvaluableExpression(filter)
	if err != nil {
		return nil, err
	}

	validVariables := map[string]struct{}{"path": {}, "folder": {}, "date": {}, "year": {}, "doy": {}}
	for _, token := range expr.Tokens() {
		if token.Kind == goeval.VARIABLE {
			varName, ok := token.Value.(string)
			if !ok {
				return nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
			}
			if _, found := validVariables[varName]; !found {
				return nil, fmt.Errorf("variable %v is not supported. Valid variables are path, folder, date, year, doy", varName)
			}
		}
	}
	return expr, nil
}

func evalFilter(expr *goeval.EvaluableExpression, img stackImage) (bool, error) {
	params := map[string]interface{}{
		"path":   img.path,
		"folder": img.folder,
		"date":   img.date.Format("2006-01-02"),
		"year":   float64(img.date.Year()),
		"doy":    float64(img.date.YearDay()),
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("evaluating filter for %s: %v", img.folder, err)
	}
	keep, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter must evaluate to a boolean, got %v", result)
	}
	return keep, nil
}
