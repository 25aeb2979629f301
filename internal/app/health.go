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
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "health does not accept positional arguments")
		return 2
	}

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := st.client.VerifyToken(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "API token verification failed: %v\n", err)
		return 1
	}
	fmt.Println("api=ok")

	// The snapshot store is optional; only report on it when configured.
	if strings.TrimSpace(st.cfg.DatabaseURL) == "" {
		fmt.Println("snapshot_store=not_configured")
		return 0
	}

	pool, err := db.NewPool(ctx, st.cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Snapshot store check failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	count, err := pool.CountSnapshots(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Snapshot store check failed: %v\n", err)
		return 1
	}
	fmt.Printf("snapshot_store=ok snapshots=%d\n", count)
	return 0
}
