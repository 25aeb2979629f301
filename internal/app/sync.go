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
	"horse.fit/shelf/internal/document"
	"horse.fit/shelf/internal/globaltime"
)

func runSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	location := fs.String("location", "", "Only sync one location (new, later, archive, feed)")
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

	syncedAt := globaltime.UTC()
	docs, err := st.client.ListAllDocuments(ctx, document.ListParams{Location: loc})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list documents: %v\n", err)
		return 1
	}

	upserted, err := pool.UpsertSnapshots(ctx, docs, syncedAt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to store snapshots: %v\n", err)
		return 1
	}

	// Rows not touched by this sync are documents deleted remotely.
	pruned, err := pool.PruneSnapshots(ctx, loc, syncedAt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prune stale snapshots: %v\n", err)
		return 1
	}

	if _, err := pool.InsertDedupRun(ctx, db.DedupRun{
		Kind:           db.RunKindSync,
		Location:       loc,
		TotalDocuments: len(docs),
		Status:         "COMPLETED",
	}); err != nil {
		st.logger.Warn().Err(err).Msg("failed to record sync run")
	}

	scope := loc
	if scope == "" {
		scope = "all"
	}
	fmt.Printf("location=%s synced=%d pruned=%d\n", scope, upserted, pruned)
	return 0
}
