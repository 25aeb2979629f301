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
	"horse.fit/shelf/internal/readwise"
)

func runUpdate(args []string) int {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	title := fs.String("title", "", "New title")
	author := fs.String("author", "", "New author")
	summary := fs.String("summary", "", "New summary")
	publishedDate := fs.String("published-date", "", "New published date")
	imageURL := fs.String("image-url", "", "New image URL")
	location := fs.String("location", "", "Move to location (new, later, archive, feed)")
	category := fs.String("category", "", "New category")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: shelf update ID [--title ...] [--author ...] [--summary ...] [--location ...]")
		return 2
	}

	id := strings.TrimSpace(fs.Arg(0))
	if id == "" {
		fmt.Fprintln(os.Stderr, "document id must not be empty")
		return 2
	}

	fields := document.UpdateFields{
		Title:         strings.TrimSpace(*title),
		Author:        strings.TrimSpace(*author),
		Summary:       strings.TrimSpace(*summary),
		PublishedDate: strings.TrimSpace(*publishedDate),
		ImageURL:      strings.TrimSpace(*imageURL),
		Location:      strings.TrimSpace(*location),
		Category:      strings.TrimSpace(*category),
	}
	if fields.IsZero() {
		fmt.Fprintln(os.Stderr, "at least one field flag is required")
		return 2
	}

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	doc, err := st.docs.UpdateMetadata(ctx, id, fields)
	if err != nil {
		if readwise.IsNotFound(err) {
			fmt.Fprintf(os.Stderr, "Document %s not found\n", id)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to update document: %v\n", err)
		return 1
	}

	fmt.Printf("id=%s title=%q location=%s\n", doc.ID, doc.Title, doc.Location)
	return 0
}

func runMove(args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: shelf move ID LOCATION")
		return 2
	}

	id := strings.TrimSpace(fs.Arg(0))
	location := strings.TrimSpace(strings.ToLower(fs.Arg(1)))
	if !document.IsValidLocation(location) {
		fmt.Fprintf(os.Stderr, "Invalid location %q (valid: %s)\n", location, strings.Join(document.ValidLocations, ", "))
		return 2
	}

	st, err := connectStore(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	doc, err := st.docs.MoveDocument(ctx, id, location)
	if err != nil {
		if readwise.IsNotFound(err) {
			fmt.Fprintf(os.Stderr, "Document %s not found\n", id)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to move document: %v\n", err)
		return 1
	}

	fmt.Printf("id=%s location=%s\n", doc.ID, doc.Location)
	return 0
}
