package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/shelf/internal/cli"
	"horse.fit/shelf/internal/dedup"
)

func runAnalyzeCSVDuplicates(args []string) int {
	fs := flag.NewFlagSet("analyze-csv-duplicates", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	advanced := fs.Bool("advanced", false, "Also cluster rows by title similarity (heuristic)")
	verbose := fs.Bool("verbose", false, "Print every duplicate group")
	export := fs.String("export", "", "Write the flattened duplicate list CSV to FILE")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: shelf analyze-csv-duplicates CSV [--advanced] [--verbose] [--export FILE]")
		return 2
	}
	csvPath := fs.Arg(0)

	logger := offlineLogger(envLoader)
	analysis := dedup.AnalyzeCSV(csvPath, *advanced, logger)
	if analysis.Error != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", analysis.Error)
		return 1
	}

	fmt.Println("=== CSV Duplicate Analysis ===")
	fmt.Printf("CSV file: %s\n", analysis.CSVFile)
	fmt.Printf("Mode: %s\n", analysis.Mode)
	fmt.Printf("Total documents: %d\n", analysis.TotalDocuments)
	fmt.Printf("Duplicate groups: %d\n", analysis.DuplicateGroups)
	fmt.Printf("Duplicates to remove: %d\n", analysis.TotalDuplicates)
	if analysis.Warning != "" {
		fmt.Printf("Warning: %s\n", analysis.Warning)
	}

	if *verbose {
		for _, group := range analysis.Groups {
			fmt.Printf("\n--- Group %d (%d documents) ---\n", group.GroupID, group.Count)
			if group.NormalizedURL != "" {
				fmt.Printf("Normalized URL: %s\n", group.NormalizedURL)
			}
			if group.MatchReason != "" {
				fmt.Printf("Match reason: %s\n", group.MatchReason)
			}
			for _, row := range group.Documents {
				fmt.Printf("  - row %d: %s (%s)\n", row.RowNumber, truncateForTable(row.Data["title"], 50), row.Data["source_url"])
			}
		}
	}

	if *export != "" {
		filename, err := dedup.ExportCSVAnalysis(analysis, *export)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to export duplicate list: %v\n", err)
			return 1
		}
		fmt.Printf("Duplicate list exported to: %s\n", filename)
	}
	return 0
}
