package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"horse.fit/shelf/internal/cli"
	"horse.fit/shelf/internal/config"
	"horse.fit/shelf/internal/document"
	"horse.fit/shelf/internal/logging"
	"horse.fit/shelf/internal/readwise"
)

const (
	outputFormatTable = "table"
	outputFormatText  = "text"
	outputFormatJSON  = "json"
)

func parseOutputFormat(raw, defaultFormat string, allowed ...string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	for _, candidate := range allowed {
		if format == candidate {
			return format, nil
		}
	}
	return "", fmt.Errorf("--format must be %s", strings.Join(allowed, " or "))
}

func truncateForTable(value string, maxLen int) string {
	trimmed := strings.TrimSpace(value)
	if maxLen <= 0 {
		return trimmed
	}
	if utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}

	runes := []rune(trimmed)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func splitTagsFlag(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// confirmDangerousAction asks a y/N question on stderr and reads one line
// from stdin. Anything but y/yes declines; EOF declines.
func confirmDangerousAction(prompt string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", strings.TrimSpace(prompt))
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// confirmTypedPhrase requires the exact phrase to be typed; anything else,
// including EOF, declines.
func confirmTypedPhrase(prompt, phrase string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s\nType %q to confirm, any other input cancels: ", strings.TrimSpace(prompt), phrase)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.TrimSpace(line) == phrase, nil
}

// store bundles what a live-library command needs: config, logger, the API
// client, and the services built on it.
type store struct {
	cfg    *config.Config
	logger zerolog.Logger
	client *readwise.Client
	docs   *document.Service
	tags   *document.TagService
}

func connectStore(envLoader *cli.EnvLoader) (*store, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	client, err := readwise.NewClient(cfg.ReadwiseToken, readwise.Options{
		BaseURL: cfg.ReadwiseBaseURL,
		AuthURL: cfg.ReadwiseAuthURL,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build API client: %w", err)
	}

	return &store{
		cfg:    cfg,
		logger: logger,
		client: client,
		docs:   document.NewService(client, logger),
		tags:   document.NewTagService(client, logger),
	}, nil
}

// offlineLogger builds a logger for commands that work on local files and
// never need the API token. The .env file stays optional here.
func offlineLogger(envLoader *cli.EnvLoader) zerolog.Logger {
	if envLoader != nil {
		_, _ = envLoader.Load()
	}

	environment := strings.TrimSpace(os.Getenv("ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}

	logger, err := logging.New(environment, level)
	if err != nil {
		return zerolog.New(os.Stderr).With().Timestamp().Str("service", "shelf").Logger()
	}
	return logger
}
