package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024

	defaultUserAgent = "shelf/1.0 (+https://horse.fit/shelf)"

	excerptRuneLimit = 280
)

// FetchOptions controls HTTP behavior for preview extraction.
type FetchOptions struct {
	Timeout       time.Duration
	BodyByteLimit int64
	UserAgent     string
	HTTPClient    *http.Client
}

// Preview is the readable-content extraction for a single page.
type Preview struct {
	URL       string `json:"url"`
	Excerpt   string `json:"excerpt,omitempty"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
}

// Fetch retrieves a page and extracts its readable text.
func Fetch(ctx context.Context, pageURL string, fallbackTitle string) (Preview, error) {
	return FetchWithOptions(ctx, pageURL, fallbackTitle, FetchOptions{})
}

// FetchWithOptions retrieves a page and extracts its readable text.
//
// Extraction prefers rendered readability output, then the readability
// excerpt, then the supplied fallback title. Plain-text responses skip
// readability and are cleaned directly.
func FetchWithOptions(ctx context.Context, pageURL string, fallbackTitle string, opts FetchOptions) (Preview, error) {
	page := strings.TrimSpace(pageURL)
	if page == "" {
		return Preview{}, fmt.Errorf("page URL is required")
	}

	body, contentType, err := fetchBody(ctx, page, opts)
	if err != nil {
		return Preview{}, err
	}

	if strings.HasPrefix(contentType, "text/plain") {
		return finishPreview(page, "", CleanText(string(body)), fallbackTitle)
	}

	parsed, err := url.Parse(page)
	if err != nil {
		return Preview{}, fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return Preview{}, fmt.Errorf("readability parse: %w", err)
	}

	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		return Preview{}, fmt.Errorf("render readability text: %w", err)
	}

	excerpt := CleanText(article.Excerpt())
	return finishPreview(page, excerpt, CleanText(rendered.String()), fallbackTitle)
}

func fetchBody(ctx context.Context, page string, opts FetchOptions) ([]byte, string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	return body, contentType, nil
}

func finishPreview(page string, excerpt string, text string, fallbackTitle string) (Preview, error) {
	if text == "" {
		text = excerpt
	}
	if text == "" {
		text = strings.TrimSpace(fallbackTitle)
	}
	if text == "" {
		return Preview{}, fmt.Errorf("reader extracted empty content")
	}

	if excerpt == "" {
		excerpt, _ = TruncateText(text, excerptRuneLimit)
	}

	return Preview{
		URL:       page,
		Excerpt:   excerpt,
		Text:      text,
		WordCount: len(strings.Fields(text)),
	}, nil
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// TruncateText clips text to maxChars runes and appends a single ellipsis rune when truncated.
func TruncateText(raw string, maxChars int) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if maxChars <= 0 {
		return trimmed, false
	}

	runes := []rune(trimmed)
	if len(runes) <= maxChars {
		return trimmed, false
	}
	if maxChars == 1 {
		return "…", true
	}

	clipped := strings.TrimSpace(string(runes[:maxChars-1]))
	if clipped == "" {
		return "…", true
	}

	return clipped + "…", true
}
