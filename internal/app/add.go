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
	"horse.fit/shelf/internal/document"
	"horse.fit/shelf/internal/langdetect"
	"horse.fit/shelf/internal/reader"
)

func runAdd(args []string) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	title := fs.String("title", "", "Document title")
	author := fs.String("author", "", "Document author")
	summary := fs.String("summary", "", "Document summary")
	tagsFlag := fs.String("tags", "", "Comma-separated tags")
	location := fs.String("location", "new", "Target location (new, later, archive, feed)")
	withPreview := fs.Bool("with-preview", false, "Fetch the page first and fill a missing summary from the extracted text")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: shelf add URL [--title ...] [--author ...] [--tags a,b] [--location new] [--with-preview]")
		return 2
	}

	pageURL := strings.TrimSpace(fs.Arg(0))
	if pageURL == "" {
		fmt.Fprintln(os.Stderr, "URL must not be empty")
		return 2
	}
	if !document.IsValidLocation(*location) {
		fmt.Fprintf(os.Stderr, "Invalid location %q (valid: %s)\n", *location, strings.Join(document.ValidLocations, ", "))
		return 2
	}

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req := document.SaveRequest{
		URL:      pageURL,
		Title:    strings.TrimSpace(*title),
		Author:   strings.TrimSpace(*author),
		Summary:  strings.TrimSpace(*summary),
		Location: *location,
		Tags:     splitTagsFlag(*tagsFlag),
	}

	// Reader extracts the page itself on save; the local preview only fills
	// a missing summary and reports what the page looks like.
	if *withPreview && req.Summary == "" {
		preview, err := reader.Fetch(ctx, pageURL, req.Title)
		if err != nil {
			st.logger.Warn().Err(err).Str("url", pageURL).Msg("preview fetch failed, saving without summary")
		} else {
			req.Summary = preview.Excerpt
			language := langdetect.DetectISO6391(preview.Text)
			fmt.Printf("preview: words=%d language=%s\n", preview.WordCount, language)
		}
	}

	result, err := st.docs.AddArticle(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save document: %v\n", err)
		return 1
	}

	fmt.Printf("id=%s created=%t url=%s\n", result.ID, result.Created, result.URL)
	return 0
}
