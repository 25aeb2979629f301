package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/shelf/internal/cli"
	"horse.fit/shelf/internal/plan"
)

func runPlanDeletion(args []string) int {
	fs := flag.NewFlagSet("plan-deletion", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	preferNewer := fs.Bool("prefer-newer", false, "Keep the newest document instead of the oldest")
	verbose := fs.Bool("verbose", false, "Print every planned group")
	export := fs.String("export", "", "Plan CSV filename (default deletion_plan_<timestamp>.csv)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: shelf plan-deletion CSV [--prefer-newer] [--verbose] [--export FILE]")
		return 2
	}
	csvPath := fs.Arg(0)

	logger := offlineLogger(envLoader)
	deletionPlan := plan.BuildPlan(csvPath, *preferNewer, logger)
	if deletionPlan.Error != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", deletionPlan.Error)
		return 1
	}

	keeperRule := "oldest creation date"
	if deletionPlan.PreferNewer {
		keeperRule = "newest creation date"
	}
	fmt.Println("=== Deletion Plan ===")
	fmt.Printf("Source CSV: %s\n", deletionPlan.SourceCSV)
	fmt.Printf("Keeper rule: notes, then tags, then %s\n", keeperRule)
	fmt.Printf("Groups: %d\n", deletionPlan.TotalGroups)
	fmt.Printf("Documents to delete: %d\n", deletionPlan.TotalToDelete)

	if deletionPlan.TotalGroups == 0 {
		fmt.Println("No duplicate groups found, nothing to plan")
		return 0
	}

	if *verbose {
		for _, group := range deletionPlan.Groups {
			fmt.Printf("\n--- Group %d ---\n", group.GroupID)
			fmt.Printf("KEEP   %s %s (%s)\n", group.Keep.DocumentID, truncateForTable(group.Keep.Title, 50), group.Keep.Reason)
			for _, entry := range group.Delete {
				fmt.Printf("DELETE %s %s\n", entry.DocumentID, truncateForTable(entry.Title, 50))
			}
		}
	}

	filename, err := plan.WritePlanCSV(deletionPlan, *export)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write plan: %v\n", err)
		return 1
	}
	fmt.Printf("Deletion plan written to: %s\n", filename)
	fmt.Println("Review the plan, then run: shelf execute-deletion " + filename)
	return 0
}
