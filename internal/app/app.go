// Package app implements the shelf CLI: one file per command, stdlib
// flag.FlagSet parsing, exit codes 0 (ok), 1 (runtime failure), 2 (usage).
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "add":
		return runAdd(args[1:])
	case "list":
		return runList(args[1:])
	case "search":
		return runSearch(args[1:])
	case "update":
		return runUpdate(args[1:])
	case "move":
		return runMove(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "stats":
		return runStats(args[1:])
	case "export":
		return runExport(args[1:])
	case "tags":
		return runTags(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "sync":
		return runSync(args[1:])
	case "history":
		return runHistory(args[1:])
	case "analyze-duplicates":
		return runAnalyzeDuplicates(args[1:])
	case "remove-duplicates":
		return runRemoveDuplicates(args[1:])
	case "analyze-csv-duplicates":
		return runAnalyzeCSVDuplicates(args[1:])
	case "plan-deletion":
		return runPlanDeletion(args[1:])
	case "execute-deletion":
		return runExecuteDeletion(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "shelf CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  shelf <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Library:")
	fmt.Fprintln(os.Stderr, "  health    Verify the Reader API token (and the snapshot store when configured)")
	fmt.Fprintln(os.Stderr, "  add       Save a URL to the library")
	fmt.Fprintln(os.Stderr, "  list      List documents")
	fmt.Fprintln(os.Stderr, "  search    Search documents by title keyword")
	fmt.Fprintln(os.Stderr, "  update    Update document metadata")
	fmt.Fprintln(os.Stderr, "  move      Move a document to another location")
	fmt.Fprintln(os.Stderr, "  delete    Delete one document")
	fmt.Fprintln(os.Stderr, "  stats     Per-location document counts")
	fmt.Fprintln(os.Stderr, "  export    Export the library to a JSON file")
	fmt.Fprintln(os.Stderr, "  tags      List, search, and report on tags")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Batch import:")
	fmt.Fprintln(os.Stderr, "  ingest    Validate and save document payloads from a JSON file")
	fmt.Fprintln(os.Stderr, "  validate  Validate document payload JSON files in a directory")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Deduplication:")
	fmt.Fprintln(os.Stderr, "  analyze-duplicates      Scan the library for duplicates (read-only)")
	fmt.Fprintln(os.Stderr, "  remove-duplicates       Delete duplicates, keeping the best of each group")
	fmt.Fprintln(os.Stderr, "  analyze-csv-duplicates  Scan an exported CSV for duplicates")
	fmt.Fprintln(os.Stderr, "  plan-deletion           Build a reviewable deletion plan from a CSV")
	fmt.Fprintln(os.Stderr, "  execute-deletion        Execute a reviewed deletion plan")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Snapshot store:")
	fmt.Fprintln(os.Stderr, "  sync      Refresh the local snapshot cache from the live library")
	fmt.Fprintln(os.Stderr, "  history   List recorded dedup runs")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Server:")
	fmt.Fprintln(os.Stderr, "  serve     Start the JSON API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"shelf <command> -h\" for command-specific flags.")
}
