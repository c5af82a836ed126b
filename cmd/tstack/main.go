package main

/* tstack extracts rows and pixel time series from stacks of co-registered
   raster images, one image per acquisition date. Rows are read through a
   row cache so that repeated runs over the same stack skip the images.
   The stack is described by a dataset config file pointing at an input
   CSV of dates and filenames, which the find command can generate. */

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
)

var (
	Error *log.Logger
	Info  *log.Logger
)

type command struct {
	Flags *flag.FlagSet
	Usage string
	Short string
	Exec  func(args []string) error
}

func (c *command) name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

func (c *command) printHelp() {
	fmt.Fprintf(os.Stderr, "Usage: tstack %s\n\n%s\n", c.Usage, c.Short)
	if c.Flags.HasFlags() {
		fmt.Fprintf(os.Stderr, "\nFlags:\n%s", c.Flags.FlagUsages())
	}
}

func (c *command) run(args []string) int {
	c.Flags.SetOutput(&strings.Builder{})
	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.printHelp()
			return 0
		}
		Error.Printf("%v", err)
		c.printHelp()
		return 2
	}
	if err := c.Exec(c.Flags.Args()); err != nil {
		Error.Printf("%v", err)
		return 1
	}
	return 0
}

func commands() []*command {
	return []*command{
		inspectCmd(),
		pixelCmd(),
		rowCmd(),
		cacheCmd(),
		findCmd(),
	}
}

func usage(cmds []*command) {
	fmt.Fprintf(os.Stderr, "Usage: tstack <command> [flags]\n\nCommands:\n")
	for _, c := range cmds {
		fmt.Fprintf(os.Stderr, "  %-42s %s\n", c.Usage, c.Short)
	}
}

func main() {
	Error = log.New(os.Stderr, "tstack: ", log.Ldate|log.Ltime)
	Info = log.New(os.Stderr, "tstack: ", log.Ldate|log.Ltime)

	cmds := commands()
	if len(os.Args) < 2 {
		usage(cmds)
		os.Exit(2)
	}

	for _, c := range cmds {
		if c.name() == os.Args[1] {
			os.Exit(c.run(os.Args[2:]))
		}
	}

	if os.Args[1] != "help" && os.Args[1] != "-h" && os.Args[1] != "--help" {
		Error.Printf("unknown command: %s", os.Args[1])
	}
	usage(cmds)
	os.Exit(2)
}
