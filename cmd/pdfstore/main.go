// Command pdfstore inspects, garbage-collects and compacts the object graph
// of PDF files.
//
// Usage:
//
//	pdfstore [flags] stat in.pdf
//	pdfstore [flags] show in.pdf num [gen]
//	pdfstore [flags] gc in.pdf out.pdf
//	pdfstore [flags] compact in.pdf out.pdf
//	pdfstore [flags] snapshot in.pdf out.db
//	pdfstore [flags] restore in.db out.pdf
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/juju/errgo"

	"github.com/tsawler/pdfstore/config"
)

var errUsage = errors.New("usage: pdfstore [-config file] [-v] [-compress] [-keep-unreachable] [-scan-streams] <stat|show|gc|compact|snapshot|restore> args...")

func main() {
	verbose, err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		if verbose {
			fmt.Fprintln(os.Stderr, errgo.Details(err))
		} else {
			fmt.Fprintln(os.Stderr, "pdfstore:", err)
		}
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
}

type command struct {
	args int // required arguments; optional ones follow
	opt  int
	run  func(a *app, args []string) error
}

var commands = map[string]command{
	"stat":     {args: 1, run: (*app).stat},
	"show":     {args: 2, opt: 1, run: (*app).show},
	"gc":       {args: 2, run: (*app).gc},
	"compact":  {args: 2, run: (*app).compact},
	"snapshot": {args: 2, run: (*app).snapshot},
	"restore":  {args: 2, run: (*app).restore},
}

// run parses flags and dispatches. It reports whether verbose output was
// requested so main can print error details.
func run(args []string, stdout, stderr io.Writer) (bool, error) {
	fs := flag.NewFlagSet("pdfstore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	verbose := fs.Bool("v", false, "log at debug level and print error details")
	compress := fs.Bool("compress", false, "flate-compress unfiltered streams when writing")
	keep := fs.Bool("keep-unreachable", false, "compact without garbage collecting first")
	scan := fs.Bool("scan-streams", false, "ignore /Length and read stream data up to endstream")
	if err := fs.Parse(args); err != nil {
		return false, err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return *verbose, err
		}
	}
	// Flags given on the command line win over the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.LogLevel = "debug"
		case "compress":
			cfg.Compress = *compress
		case "keep-unreachable":
			cfg.KeepUnreachable = *keep
		case "scan-streams":
			cfg.ScanStreams = *scan
		}
	})
	level, err := cfg.Level()
	if err != nil {
		return *verbose, err
	}

	a := &app{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		stdout: stdout,
	}

	if fs.NArg() == 0 {
		return *verbose, errUsage
	}
	cmd, ok := commands[fs.Arg(0)]
	rest := fs.Args()[1:]
	if !ok || len(rest) < cmd.args || len(rest) > cmd.args+cmd.opt {
		return *verbose, errUsage
	}
	return *verbose, cmd.run(a, rest)
}
