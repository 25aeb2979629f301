package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/shelf/internal/cli"
	"horse.fit/shelf/internal/document"
)

func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	location := fs.String("location", "", "Export only one location")
	output := fs.String("output", "", "Output filename (default shelf_export_<timestamp>.json)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "export does not accept positional arguments")
		return 2
	}
	if *location != "" && !document.IsValidLocation(*location) {
		fmt.Fprintf(os.Stderr, "Invalid location %q (valid: %s)\n", *location, strings.Join(document.ValidLocations, ", "))
		return 2
	}

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	filename, count, err := st.docs.ExportJSON(ctx, *location, strings.TrimSpace(*output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		return 1
	}

	fmt.Printf("file=%s documents=%d\n", filename, count)
	return 0
}
