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
	"horse.fit/shelf/internal/db"
	"horse.fit/shelf/internal/dedup"
	"horse.fit/shelf/internal/document"
)

func runAnalyzeDuplicates(args []string) int {
	fs := flag.NewFlagSet("analyze-duplicates", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	location := fs.String("location", "", "Only analyze one location (new, later, archive, feed)")
	limit := fs.Int("limit", 0, "Analyze at most N documents, 0 means all")
	cached := fs.Bool("cached", false, "Analyze local snapshots instead of the live library")
	format := fs.String("format", outputFormatText, "Output format: text or json")
	export := fs.String("export", "", "Also write the full JSON report to FILE")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	loc := strings.ToLower(strings.TrimSpace(*location))
	if loc != "" && !document.IsValidLocation(loc) {
		fmt.Fprintf(os.Stderr, "Invalid location %q, must be one of %s\n", loc, strings.Join(document.ValidLocations, ", "))
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must not be negative")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatText, outputFormatText, outputFormatJSON)
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

	var analysis dedup.Analysis
	if *cached {
		analysis, err = analyzeSnapshots(ctx, st, loc, *limit)
	} else {
		svc := dedup.NewService(st.client, st.logger)
		analysis, err = svc.AnalyzeLibrary(ctx, loc, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to analyze duplicates: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(analysis); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	} else if analysis.Error != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", analysis.Error)
	} else {
		printAnalysisText(analysis)
	}
	if analysis.Error != "" {
		return 1
	}

	reportFile := ""
	if *export != "" {
		reportFile, err = dedup.ExportAnalysis(analysis, *export)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to export report: %v\n", err)
			return 1
		}
		fmt.Printf("Analysis report exported to: %s\n", reportFile)
	}

	recordDedupRun(st.cfg, st.logger, db.DedupRun{
		Kind:            db.RunKindAnalyze,
		Location:        loc,
		TotalDocuments:  analysis.TotalDocuments,
		DuplicateGroups: analysis.DuplicateGroups,
		TotalDuplicates: analysis.TotalDuplicates,
		Status:          "COMPLETED",
		ReportFile:      reportFile,
	})
	return 0
}

// analyzeSnapshots runs the same grouping over rows written by `shelf sync`
// without touching the live API.
func analyzeSnapshots(ctx context.Context, st *store, location string, limit int) (dedup.Analysis, error) {
	pool, err := db.NewPool(ctx, st.cfg)
	if err != nil {
		return dedup.Analysis{}, fmt.Errorf("connect to snapshot store: %w", err)
	}
	defer pool.Close()

	docs, err := pool.ListSnapshots(ctx, location)
	if err != nil {
		return dedup.Analysis{}, fmt.Errorf("list snapshots: %w", err)
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	st.logger.Info().Int("documents", len(docs)).Msg("analyzing cached snapshots for duplicates")
	return dedup.Analyze(docs), nil
}

func printAnalysisText(analysis dedup.Analysis) {
	fmt.Println("=== Deduplication Analysis Results ===")
	fmt.Printf("Total documents: %d\n", analysis.TotalDocuments)
	fmt.Printf("Duplicate groups: %d\n", analysis.DuplicateGroups)
	fmt.Printf("Duplicates to remove: %d\n", analysis.TotalDuplicates)

	for _, group := range analysis.Groups {
		best := group.BestDocument
		author := best.Author
		if author == "" {
			author = "N/A"
		}
		fmt.Printf("\n--- Group %d ---\n", group.GroupID)
		fmt.Printf("Keep document: %s\n", truncateForTable(best.Title, 50))
		fmt.Printf("  ID: %s\n", best.ID)
		fmt.Printf("  Quality score: %d\n", best.QualityScore)
		fmt.Printf("  Author: %s\n", author)
		fmt.Printf("  Location: %s\n", best.Location)
		fmt.Printf("Will remove %d duplicate documents:\n", len(group.DuplicatesToRemove))
		for _, dup := range group.DuplicatesToRemove {
			fmt.Printf("  - %s (score: %d)\n", truncateForTable(dup.Title, 50), dup.QualityScore)
		}
	}
}
