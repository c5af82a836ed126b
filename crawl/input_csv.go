package crawl

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"
	"github.com/nci/tstack/utils"
)

// WriteInputCSV writes images in the layout utils.ReadInputCSV reads:
// a date, filename and id header followed by one image per row.
func WriteInputCSV(w io.Writer, images *utils.ImageSet, dateFormat string) error {
	layout, err := utils.GoDateLayout(dateFormat)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "filename", "id"}); err != nil {
		return err
	}
	filenames, dates, ids := images.Filenames(), images.Dates(), images.IDs()
	for i := range filenames {
		if err := cw.Write([]string{dates[i].Format(layout), filenames[i], ids[i]}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInputCSVFile writes the input CSV to path, or to stdout when path is
// "-". The file is replaced atomically.
func WriteInputCSVFile(path string, images *utils.ImageSet, dateFormat string) error {
	if path == "-" {
		return WriteInputCSV(os.Stdout, images, dateFormat)
	}

	var buf bytes.Buffer
	if err := WriteInputCSV(&buf, images, dateFormat); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing input file %s: %v", path, err)
	}
	return nil
}
