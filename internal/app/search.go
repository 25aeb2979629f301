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
)

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 120*time.Second, "Command timeout")
	location := fs.String("location", "", "Limit the search to one location")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: shelf search KEYWORD [--location ...]")
		return 2
	}

	keyword := strings.TrimSpace(fs.Arg(0))
	if keyword == "" {
		fmt.Fprintln(os.Stderr, "keyword must not be empty")
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

	matches, err := st.docs.SearchDocuments(ctx, keyword, *location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(matches); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(matches) == 0 {
		fmt.Printf("No documents matching %q\n", keyword)
		return 0
	}

	rows := make([][]string, 0, len(matches))
	for _, doc := range matches {
		rows = append(rows, []string{
			doc.ID,
			truncateForTable(doc.Title, 70),
			doc.Location,
			truncateForTable(doc.BestURL(), 60),
		})
	}
	if err := writeTable([]string{"id", "title", "location", "url"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf("\n%d documents matched\n", len(matches))
	return 0
}
