package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/nci/tstack/cache"
	"github.com/nci/tstack/crawl"
	"github.com/nci/tstack/gdalraster"
	"github.com/nci/tstack/processor"
	"github.com/nci/tstack/raster"
	"github.com/nci/tstack/reader"

	flag "github.com/spf13/pflag"
)

func inspectCmd() *command {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	stats := fs.Bool("stats", false, "Read the image and print per band min/max/mean.")
	bands := fs.IntSlice("bands", nil, "1-based bands to summarise with --stats (default all).")

	return &command{
		Flags: fs,
		Usage: "inspect <image> [--stats] [--bands 1,2]",
		Short: "Print the geometry of an image",
		Exec: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("inspect takes exactly one image")
			}
			opener := gdalraster.NewOpener()
			if !*stats {
				g, err := reader.Inspect(opener, args[0])
				if err != nil {
					return err
				}
				return printJSON(g)
			}

			block, g, err := reader.ReadImage(opener, args[0], *bands)
			if err != nil {
				return err
			}
			out := struct {
				raster.Geometry
				Bands []bandStats `json:"bands"`
			}{Geometry: g}
			for b := 0; b < block.Bands; b++ {
				out.Bands = append(out.Bands, summarise(block, b))
			}
			return printJSON(out)
		},
	}
}

type bandStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

func summarise(block *raster.RowBlock, band int) bandStats {
	s := bandStats{Min: math.Inf(1), Max: math.Inf(-1)}
	for c := 0; c < block.Cols; c++ {
		v := block.Float64At(band, 0, c)
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		s.Mean += v
	}
	if block.Cols > 0 {
		s.Mean /= float64(block.Cols)
	}
	return s
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pixelCmd() *command {
	fs := flag.NewFlagSet("pixel", flag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "Dataset config file.")
	px := fs.Int("px", 0, "Pixel column.")
	py := fs.Int("py", 0, "Pixel row.")
	verbose := fs.BoolP("verbose", "v", false, "Verbose output.")

	return &command{
		Flags: fs,
		Usage: "pixel -c <config> --px <col> --py <row>",
		Short: "Print the time series of one pixel as CSV",
		Exec: func(args []string) error {
			ds, err := openDataset(*configFile, *verbose)
			if err != nil {
				return err
			}
			defer ds.Close()

			block, err := reader.ReadPixelTimeseries(ds.opener, ds.images.Filenames(), *px, *py)
			if err != nil {
				return err
			}

			w := bufio.NewWriter(os.Stdout)
			defer w.Flush()
			fmt.Fprint(w, "date,id")
			for b := 0; b < block.Bands; b++ {
				fmt.Fprintf(w, ",band%d", b+1)
			}
			fmt.Fprintln(w)

			dates, ids := ds.images.Dates(), ds.images.IDs()
			layout := "2006-01-02"
			for i := 0; i < block.Images; i++ {
				fmt.Fprintf(w, "%s,%s", dates[i].Format(layout), ids[i])
				for b := 0; b < block.Bands; b++ {
					fmt.Fprintf(w, ",%s", formatValue(block.Float64At(b, i, 0)))
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func rowCmd() *command {
	fs := flag.NewFlagSet("row", flag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "Dataset config file.")
	row := fs.IntP("row", "r", 0, "Row to read.")
	noRead := fs.Bool("no-cache-read", false, "Do not serve the row from the cache.")
	noWrite := fs.Bool("no-cache-write", false, "Do not write the row to the cache.")
	noValidate := fs.Bool("no-validate", false, "Accept cache entries without checking image IDs.")
	verbose := fs.BoolP("verbose", "v", false, "Verbose output.")

	return &command{
		Flags: fs,
		Usage: "row -c <config> -r <row> [flags]",
		Short: "Print one row of every image as CSV",
		Exec: func(args []string) error {
			ds, err := openDataset(*configFile, *verbose)
			if err != nil {
				return err
			}
			defer ds.Close()

			ra := ds.rowAccessor()
			defer ra.Close()

			opts := processor.DefaultReadOptions(ds.config)
			opts.ReadCache = opts.ReadCache && !*noRead
			opts.WriteCache = opts.WriteCache && !*noWrite
			opts.ValidateCache = opts.ValidateCache && !*noValidate

			block, err := ra.ReadRow(*row, ds.images, opts)
			if err != nil {
				return err
			}

			w := bufio.NewWriter(os.Stdout)
			defer w.Flush()
			ids := ds.images.IDs()
			fmt.Fprint(w, "id,band")
			for c := 0; c < block.Cols; c++ {
				fmt.Fprintf(w, ",c%d", c)
			}
			fmt.Fprintln(w)
			for i := 0; i < block.Images; i++ {
				for b := 0; b < block.Bands; b++ {
					fmt.Fprintf(w, "%s,%d", ids[i], b+1)
					for c := 0; c < block.Cols; c++ {
						fmt.Fprintf(w, ",%s", formatValue(block.Float64At(b, i, c)))
					}
					fmt.Fprintln(w)
				}
			}
			return nil
		},
	}
}

func cacheCmd() *command {
	fs := flag.NewFlagSet("cache", flag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "Dataset config file.")
	start := fs.Int("start", 0, "First row to cache.")
	stop := fs.Int("stop", -1, "Row after the last one to cache (default all rows).")
	rebuild := fs.Bool("rebuild", false, "Delete existing entries in the range first.")
	workers := fs.IntP("workers", "j", 1, "Number of row ranges cached in parallel.")
	verbose := fs.BoolP("verbose", "v", false, "Verbose output.")

	return &command{
		Flags: fs,
		Usage: "cache -c <config> [--start n] [--stop n] [--rebuild]",
		Short: "Fill the row cache for a range of rows",
		Exec: func(args []string) error {
			ds, err := openDataset(*configFile, *verbose)
			if err != nil {
				return err
			}
			defer ds.Close()

			last := *stop
			if last < 0 {
				last = ds.geometry.Rows
			}

			if *rebuild {
				sig := cache.Signature(ds.config.Dataset)
				for line := *start; line < last; line++ {
					key := cache.KeyFor(sig, ds.images.Len(), line, ds.geometry.Bands)
					if err := ds.cache.Delete(key); err != nil {
						return fmt.Errorf("deleting %v: %v", key, err)
					}
				}
			}

			filler := &processor.CacheFiller{
				NewAccessor: ds.rowAccessor,
				Workers:     *workers,
			}
			n, err := filler.Fill(ds.images, *start, last)
			if err != nil {
				return err
			}
			Info.Printf("Cached %d rows in [%d, %d)", n, *start, last)
			return nil
		},
	}
}

func findCmd() *command {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	def := crawl.DefaultStackPattern()
	folderPattern := fs.String("folder-pattern", def.FolderPattern, "Glob matching stack folders.")
	imagePattern := fs.String("image-pattern", def.ImagePattern, "Glob matching the stack image in each folder.")
	dateStart := fs.Int("date-index-start", def.DateIndexStart, "Start of the date in folder names.")
	dateEnd := fs.Int("date-index-end", def.DateIndexEnd, "End of the date in folder names.")
	dateFormat := fs.String("date-format", def.DateFormat, "strftime format of the date in folder names.")
	ignore := fs.StringSlice("ignore", def.Ignore, "Skip folders containing these names.")
	filter := fs.String("filter", "", "Boolean expression over path, folder, date, year and doy.")
	output := fs.StringP("output", "o", "-", "Input CSV to write.")

	return &command{
		Flags: fs,
		Usage: "find <location> [-o input.csv] [flags]",
		Short: "Find stacked images and write the input CSV",
		Exec: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("find takes exactly one location")
			}
			images, err := crawl.FindStackImages(args[0], crawl.StackPattern{
				FolderPattern:  *folderPattern,
				ImagePattern:   *imagePattern,
				DateIndexStart: *dateStart,
				DateIndexEnd:   *dateEnd,
				DateFormat:     *dateFormat,
				Ignore:         *ignore,
				Filter:         *filter,
			})
			if err != nil {
				return err
			}
			return crawl.WriteInputCSVFile(*output, images, *dateFormat)
		},
	}
}
