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

func runRemoveDuplicates(args []string) int {
	fs := flag.NewFlagSet("remove-duplicates", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	location := fs.String("location", "", "Only deduplicate one location (new, later, archive, feed)")
	limit := fs.Int("limit", 0, "Analyze at most N documents, 0 means all")
	execute := fs.Bool("execute", false, "Delete duplicates instead of previewing them")
	force := fs.Bool("force", false, "Skip the confirmation prompt")
	export := fs.String("export", "", "Also write the full JSON result to FILE")
	timeout := fs.Duration("timeout", 30*time.Minute, "Command timeout")

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

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var confirm dedup.ConfirmFunc
	if !*force {
		confirm = func(totalDuplicates int) (bool, error) {
			prompt := fmt.Sprintf("Do you want to delete these %d duplicate documents?", totalDuplicates)
			return confirmTypedPhrase(prompt, "yes")
		}
	}

	svc := dedup.NewService(st.client, st.logger)
	result, err := svc.RemoveDuplicates(ctx, loc, *limit, !*execute, confirm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to remove duplicates: %v\n", err)
		return 1
	}

	if result.Error != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", result.Error)
		return 1
	}
	if result.Message != "" {
		fmt.Println(result.Message)
		return 0
	}

	printAnalysisText(*result.Analysis)

	exitCode := 0
	if result.DryRun {
		fmt.Println("\n*** This is preview mode, no documents were actually deleted ***")
	} else {
		fmt.Println("\n=== Deduplication Complete ===")
		fmt.Printf("Successfully deleted: %d duplicate documents\n", result.RemovedCount)
		if len(result.FailedDeletions) > 0 {
			fmt.Printf("Failed to delete: %d documents\n", len(result.FailedDeletions))
			exitCode = 1
		}
	}

	reportFile := ""
	if *export != "" {
		reportFile, err = dedup.ExportAnalysis(result, *export)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to export report: %v\n", err)
			return 1
		}
		fmt.Printf("Analysis report exported to: %s\n", reportFile)
	}

	// Dry runs and cancellations are not recorded; history tracks runs that
	// analyzed or deleted something.
	if !result.DryRun {
		recordDedupRun(st.cfg, st.logger, db.DedupRun{
			Kind:            db.RunKindRemove,
			Location:        loc,
			TotalDocuments:  result.Analysis.TotalDocuments,
			DuplicateGroups: result.Analysis.DuplicateGroups,
			TotalDuplicates: result.Analysis.TotalDuplicates,
			RemovedCount:    result.RemovedCount,
			FailedCount:     len(result.FailedDeletions),
			Status:          "COMPLETED",
			ReportFile:      reportFile,
		})
	}
	return exitCode
}
