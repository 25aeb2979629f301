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
	"horse.fit/shelf/internal/plan"
)

func runExecuteDeletion(args []string) int {
	fs := flag.NewFlagSet("execute-deletion", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	execute := fs.Bool("execute", false, "Delete the planned documents instead of previewing them")
	batchSize := fs.Int("batch-size", 0, "Documents per batch, 0 uses SHELF_BATCH_SIZE")
	force := fs.Bool("force", false, "Skip the confirmation prompt")
	timeout := fs.Duration("timeout", 12*time.Hour, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: shelf execute-deletion CSV [--execute] [--batch-size N] [--force]")
		return 2
	}
	if *batchSize < 0 {
		fmt.Fprintln(os.Stderr, "--batch-size must not be negative")
		return 2
	}
	planPath := fs.Arg(0)

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	size := *batchSize
	if size == 0 {
		size = st.cfg.DeleteBatchSize
	}

	if !*execute {
		executor := plan.NewExecutor(st.client, st.logger, plan.Options{
			BatchSize:    size,
			RequestDelay: st.cfg.RequestDelay,
		})
		result, err := executor.Execute(ctx, planPath, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read deletion plan: %v\n", err)
			return 1
		}
		fmt.Println("=== Deletion Plan Preview ===")
		fmt.Printf("Plan: %s\n", planPath)
		fmt.Printf("Delete candidates: %d\n", result.TotalCandidates)
		for _, row := range result.Preview {
			fmt.Printf("  - %s %s\n", row.DocumentID, truncateForTable(row.Title, 50))
		}
		if result.TotalCandidates > len(result.Preview) {
			fmt.Printf("  ... and %d more\n", result.TotalCandidates-len(result.Preview))
		}
		fmt.Println("\n*** This is preview mode, no documents were actually deleted ***")
		return 0
	}

	if !*force {
		rows, err := plan.ReadPlanCSV(planPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read deletion plan: %v\n", err)
			return 1
		}
		candidates := 0
		for _, row := range rows {
			if row.Action == plan.ActionDelete {
				candidates++
			}
		}
		if candidates == 0 {
			fmt.Println("No delete candidates in plan")
			return 0
		}
		prompt := fmt.Sprintf("About to delete %d documents listed in %s.", candidates, planPath)
		ok, err := confirmTypedPhrase(prompt, "DELETE")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read confirmation: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Println("Operation cancelled")
			return 0
		}
	}

	interrupt := plan.WatchSignals(st.logger)
	executor := plan.NewExecutor(st.client, st.logger, plan.Options{
		BatchSize:    size,
		RequestDelay: st.cfg.RequestDelay,
		Interrupt:    interrupt,
	})

	result, err := executor.Execute(ctx, planPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute deletion plan: %v\n", err)
		return 1
	}
	report := result.Report

	fmt.Println("\n=== Deletion Run Finished ===")
	fmt.Printf("Status: %s\n", report.CompletionStatus)
	fmt.Printf("Total candidates: %d\n", report.TotalCandidates)
	fmt.Printf("Successfully deleted: %d\n", report.SuccessfulDeletions)
	fmt.Printf("Failed to delete: %d\n", report.FailedDeletions)
	if report.UpdatedPlanFile != "" {
		fmt.Printf("Updated plan written to: %s\n", report.UpdatedPlanFile)
	}
	fmt.Printf("Execution report written to: %s\n", result.ReportFile)

	recordDedupRun(st.cfg, st.logger, db.DedupRun{
		Kind:            db.RunKindExecute,
		TotalDuplicates: report.TotalCandidates,
		RemovedCount:    report.SuccessfulDeletions,
		FailedCount:     report.FailedDeletions,
		Status:          report.CompletionStatus,
		ReportFile:      result.ReportFile,
	})

	if report.CompletionStatus != plan.StatusCompleted || report.FailedDeletions > 0 {
		return 1
	}
	return 0
}
