package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

type inputRecord struct {
	date     time.Time
	filename string
	id       string
}

// ReadInputCSV reads the dataset input file: a header row naming at least
// "date" and "filename" columns, then one image per row. Dates are parsed
// with the strftime style dateFormat. idColumn optionally names a column
// holding image IDs; otherwise they are derived from the filenames. The
// result is sorted by date, keeping file order for equal dates.
func ReadInputCSV(path, dateFormat, idColumn string) (*ImageSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open input file: %v", err)
	}
	defer f.Close()

	return parseInputCSV(f, path, dateFormat, idColumn)
}

func parseInputCSV(r io.Reader, path, dateFormat, idColumn string) (*ImageSet, error) {
	layout, err := GoDateLayout(dateFormat)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("input file %s: reading header: %v", path, err)
	}

	iDate, iFile, iID := -1, -1, -1
	for i, h := range header {
		switch name := strings.ToLower(strings.TrimSpace(h)); {
		case name == "date":
			iDate = i
		case name == "filename":
			iFile = i
		case idColumn != "" && name == strings.ToLower(idColumn):
			iID = i
		}
	}
	if iDate < 0 || iFile < 0 {
		return nil, fmt.Errorf("input file %s: header must contain date and filename columns, found %v", path, header)
	}
	if idColumn != "" && iID < 0 {
		return nil, fmt.Errorf("input file %s: image ID column %q not found", path, idColumn)
	}

	var records []inputRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("input file %s: %v", path, err)
		}

		date, err := time.Parse(layout, strings.TrimSpace(row[iDate]))
		if err != nil {
			return nil, fmt.Errorf("input file %s line %d: %v", path, line, err)
		}
		rec := inputRecord{date: date, filename: strings.TrimSpace(row[iFile])}
		if iID >= 0 {
			rec.id = strings.TrimSpace(row[iID])
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input file %s lists no images", path)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].date.Before(records[j].date) })

	filenames := make([]string, len(records))
	dates := make([]time.Time, len(records))
	var ids []string
	if iID >= 0 {
		ids = make([]string, len(records))
	}
	for i, rec := range records {
		filenames[i] = rec.filename
		dates[i] = rec.date
		if ids != nil {
			ids[i] = rec.id
		}
	}
	return NewImageSet(filenames, dates, ids)
}

var strftimeLayouts = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'j': "002",
	'H': "15",
	'M': "04",
	'S': "05",
	'b': "Jan",
	'B': "January",
	'%': "%",
}

// GoDateLayout converts a strftime style format such as "%Y%j" to a Go
// time layout.
func GoDateLayout(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("empty date format")
	}

	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			sb.WriteByte(format[i])
			continue
		}
		if i+1 >= len(format) {
			return "", fmt.Errorf("date format %q ends with %%", format)
		}
		i++
		layout, ok := strftimeLayouts[format[i]]
		if !ok {
			return "", fmt.Errorf("date format %q: unsupported directive %%%c", format, format[i])
		}
		sb.WriteString(layout)
	}
	return sb.String(), nil
}
