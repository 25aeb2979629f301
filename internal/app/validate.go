package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	docschema "horse.fit/shelf/schema"
)

// runValidate checks payload files offline; it never loads config or
// touches the network.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	dir := fs.String("dir", "", "Directory holding .json payload files")
	recursive := fs.Bool("recursive", false, "Descend into subdirectories")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*dir) == "" {
		fmt.Fprintln(os.Stderr, "Usage: shelf validate --dir DIR [--recursive]")
		return 2
	}

	files, err := collectJSONFiles(*dir, *recursive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to scan %s: %v\n", *dir, err)
		return 1
	}
	if len(files) == 0 {
		fmt.Printf("No .json files found in %s\n", *dir)
		return 0
	}

	valid, invalid := 0, 0
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			invalid++
			fmt.Fprintf(os.Stderr, "invalid %s: %v\n", path, err)
			continue
		}
		payloads, err := docschema.ValidateDocumentPayloads(raw)
		if err != nil {
			invalid++
			fmt.Fprintf(os.Stderr, "invalid %s: %v\n", path, err)
			continue
		}
		valid++
		fmt.Printf("ok %s documents=%d\n", path, len(payloads))
	}

	fmt.Printf("files=%d valid=%d invalid=%d\n", len(files), valid, invalid)
	if invalid > 0 {
		return 1
	}
	return 0
}

func collectJSONFiles(dir string, recursive bool) ([]string, error) {
	if recursive {
		var files []string
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".json") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return files, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
