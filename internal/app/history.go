package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/shelf/internal/cli"
	"horse.fit/shelf/internal/db"
)

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 20, "Maximum number of runs to show")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be positive")
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

	pool, err := db.NewPool(ctx, st.cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to snapshot store: %v\n", err)
		return 1
	}
	defer pool.Close()

	runs, err := pool.ListDedupRuns(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list runs: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		out := make([]runRow, 0, len(runs))
		for _, run := range runs {
			out = append(out, newRunRow(run))
		}
		if err := printJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return 0
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		location := run.Location
		if location == "" {
			location = "all"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", run.RunID),
			run.Kind,
			location,
			fmt.Sprintf("%d", run.TotalDocuments),
			fmt.Sprintf("%d", run.TotalDuplicates),
			fmt.Sprintf("%d", run.RemovedCount),
			fmt.Sprintf("%d", run.FailedCount),
			run.Status,
			run.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	headers := []string{"run_id", "kind", "location", "documents", "duplicates", "removed", "failed", "status", "created_at"}
	if err := writeTable(headers, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

// runRow is the JSON shape for one recorded run; field names follow the
// analysis report JSON.
type runRow struct {
	RunID           int64  `json:"run_id"`
	Kind            string `json:"kind"`
	Location        string `json:"location"`
	TotalDocuments  int    `json:"total_documents"`
	DuplicateGroups int    `json:"duplicate_groups"`
	TotalDuplicates int    `json:"total_duplicates"`
	RemovedCount    int    `json:"removed_count"`
	FailedCount     int    `json:"failed_count"`
	Status          string `json:"status"`
	ReportFile      string `json:"report_file,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func newRunRow(run db.DedupRun) runRow {
	return runRow{
		RunID:           run.RunID,
		Kind:            run.Kind,
		Location:        run.Location,
		TotalDocuments:  run.TotalDocuments,
		DuplicateGroups: run.DuplicateGroups,
		TotalDuplicates: run.TotalDuplicates,
		RemovedCount:    run.RemovedCount,
		FailedCount:     run.FailedCount,
		Status:          run.Status,
		ReportFile:      run.ReportFile,
		CreatedAt:       run.CreatedAt.UTC().Format(time.RFC3339),
	}
}
