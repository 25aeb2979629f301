package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"horse.fit/shelf/internal/cli"
	"horse.fit/shelf/internal/document"
)

func runTags(args []string) int {
	fs := flag.NewFlagSet("tags", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 120*time.Second, "Command timeout")
	search := fs.String("search", "", "Filter tags by name substring")
	sortBy := fs.String("sort", "name", "Sort order: name or key")
	usage := fs.Bool("usage", false, "Report how many documents carry each tag")
	unused := fs.Bool("unused", false, "List tags that appear on no document")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "tags does not accept positional arguments")
		return 2
	}
	if *sortBy != "name" && *sortBy != "key" {
		fmt.Fprintln(os.Stderr, "--sort must be name or key")
		return 2
	}
	if *usage && *unused {
		fmt.Fprintln(os.Stderr, "--usage and --unused are mutually exclusive")
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

	switch {
	case *usage:
		return printTagUsage(ctx, st, outputFormat)
	case *unused:
		return printUnusedTags(ctx, st, outputFormat)
	default:
		return printTagList(ctx, st, strings.TrimSpace(*search), *sortBy, outputFormat)
	}
}

func printTagList(ctx context.Context, st *store, search, sortBy, outputFormat string) int {
	var (
		tags []document.Tag
		err  error
	)
	if search != "" {
		tags, err = st.tags.SearchTags(ctx, search)
	} else {
		tags, err = st.tags.ListTags(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list tags: %v\n", err)
		return 1
	}

	sort.Slice(tags, func(i, j int) bool {
		if sortBy == "key" {
			return tags[i].Key < tags[j].Key
		}
		return tags[i].Name < tags[j].Name
	})

	if outputFormat == outputFormatJSON {
		if err := printJSON(tags); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(tags) == 0 {
		fmt.Println("No tags found")
		return 0
	}
	rows := make([][]string, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, []string{tag.Name, tag.Key})
	}
	if err := writeTable([]string{"name", "key"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

func printTagUsage(ctx context.Context, st *store, outputFormat string) int {
	usage, err := st.tags.UsageStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get tag usage: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(usage); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(usage) == 0 {
		fmt.Println("No tagged documents found")
		return 0
	}
	rows := make([][]string, 0, len(usage))
	for _, tc := range usage {
		rows = append(rows, []string{tc.Name, fmt.Sprintf("%d", tc.Count)})
	}
	if err := writeTable([]string{"tag", "documents"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

func printUnusedTags(ctx context.Context, st *store, outputFormat string) int {
	unused, err := st.tags.UnusedTags(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get unused tags: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(unused); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(unused) == 0 {
		fmt.Println("No unused tags")
		return 0
	}
	rows := make([][]string, 0, len(unused))
	for _, tag := range unused {
		rows = append(rows, []string{tag.Name, tag.Key})
	}
	if err := writeTable([]string{"name", "key"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
