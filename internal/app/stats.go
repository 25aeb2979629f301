package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/shelf/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	includeTags := fs.Bool("include-tags", false, "Append the tag usage report")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable, outputFormatTable, outputFormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stats, err := st.docs.GetStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get statistics: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	} else {
		rows := make([][]string, 0, len(stats.Locations)+1)
		for _, loc := range stats.Locations {
			rows = append(rows, []string{loc.Location, fmt.Sprintf("%d", loc.Count)})
		}
		rows = append(rows, []string{"TOTAL", fmt.Sprintf("%d", stats.Total)})
		if err := writeTable([]string{"location", "documents"}, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
			return 1
		}
	}

	if !*includeTags {
		return 0
	}

	usage, err := st.tags.UsageStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get tag statistics: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(usage); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Println()
	usageRows := make([][]string, 0, len(usage))
	for _, tc := range usage {
		usageRows = append(usageRows, []string{tc.Name, fmt.Sprintf("%d", tc.Count)})
	}
	if err := writeTable([]string{"tag", "documents"}, usageRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render tag table: %v\n", err)
		return 1
	}
	return 0
}
