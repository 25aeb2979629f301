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

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	location := fs.String("location", "", "Filter by location (new, later, archive, feed)")
	category := fs.String("category", "", "Filter by category")
	tag := fs.String("tag", "", "Filter by tag")
	limit := fs.Int("limit", 20, "Maximum documents to return")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "list does not accept positional arguments")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
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

	var docs []document.Document
	if strings.TrimSpace(*tag) != "" {
		docs, err = st.tags.DocumentsByTag(ctx, strings.TrimSpace(*tag), *location)
		if err == nil && len(docs) > *limit {
			docs = docs[:*limit]
		}
	} else {
		docs, err = st.docs.GetDocuments(ctx, *location, *category, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list documents: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(docs); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(docs) == 0 {
		fmt.Println("No documents found")
		return 0
	}

	rows := make([][]string, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, []string{
			doc.ID,
			truncateForTable(doc.Title, 60),
			doc.Location,
			doc.Category,
			truncateForTable(doc.Author, 24),
			strings.Join(doc.Tags, ","),
		})
	}
	if err := writeTable([]string{"id", "title", "location", "category", "author", "tags"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
