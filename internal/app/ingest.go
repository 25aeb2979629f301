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
	docschema "horse.fit/shelf/schema"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	file := fs.String("file", "", "Path to a JSON file with one document payload or an array of payloads")
	execute := fs.Bool("execute", false, "Save the documents instead of only printing them")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "Usage: shelf ingest --file FILE [--execute]")
		return 2
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *file, err)
		return 1
	}

	payloads, err := docschema.ValidateDocumentPayloads(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload in %s: %v\n", *file, err)
		return 1
	}

	// Validation needs no credentials, so a dry run never hits the network.
	if !*execute {
		for i, payload := range payloads {
			req := payload.ToSaveRequest()
			fmt.Printf("[%d/%d] would save url=%s title=%q\n", i+1, len(payloads), req.URL, req.Title)
		}
		fmt.Printf("validated=%d (dry run, pass --execute to save)\n", len(payloads))
		return 0
	}

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	saved, existing, failed := 0, 0, 0
	for i, payload := range payloads {
		req := payload.ToSaveRequest()
		result, err := st.docs.AddArticle(ctx, req)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "[%d/%d] failed url=%s: %v\n", i+1, len(payloads), req.URL, err)
		} else if result.Created {
			saved++
			fmt.Printf("[%d/%d] saved id=%s url=%s\n", i+1, len(payloads), result.ID, req.URL)
		} else {
			existing++
			fmt.Printf("[%d/%d] already saved id=%s url=%s\n", i+1, len(payloads), result.ID, req.URL)
		}
		if i < len(payloads)-1 {
			sleepWithContext(ctx, st.cfg.RequestDelay)
		}
	}

	fmt.Printf("saved=%d existing=%d failed=%d\n", saved, existing, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
