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
	"horse.fit/shelf/internal/readwise"
)

func runDelete(args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	force := fs.Bool("force", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: shelf delete ID [--force]")
		return 2
	}

	id := strings.TrimSpace(fs.Arg(0))
	if id == "" {
		fmt.Fprintln(os.Stderr, "document id must not be empty")
		return 2
	}

	if !*force {
		ok, err := confirmDangerousAction(fmt.Sprintf("Are you sure you want to delete document %s?", id))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read confirmation: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Cancelled")
			return 1
		}
	}

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := st.docs.DeleteDocument(ctx, id); err != nil {
		if readwise.IsNotFound(err) {
			fmt.Fprintf(os.Stderr, "Document %s not found\n", id)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to delete document: %v\n", err)
		return 1
	}

	fmt.Printf("deleted=%s\n", id)
	return 0
}
