package httpapi

import (
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"horse.fit/shelf/internal/reader"
)

const (
	defaultPreviewChars = 1000
	minPreviewChars     = 200
	maxPreviewChars     = 4000
)

// documentPreview is the preview endpoint response. PreviewError is set
// instead of failing the request when the page cannot be fetched or parsed;
// the preview is best effort.
type documentPreview struct {
	URL          string  `json:"url"`
	Excerpt      string  `json:"excerpt,omitempty"`
	PreviewText  string  `json:"preview_text,omitempty"`
	WordCount    int     `json:"word_count,omitempty"`
	CharCount    int     `json:"char_count,omitempty"`
	Truncated    bool    `json:"truncated,omitempty"`
	Language     string  `json:"language,omitempty"`
	PreviewError *string `json:"preview_error,omitempty"`
}

func (s *Server) handlePreview(c echo.Context) error {
	pageURL := strings.TrimSpace(c.QueryParam("url"))
	if pageURL == "" {
		return failValidation(c, map[string]string{"url": "is required"})
	}
	maxChars := parsePositiveInt(c.QueryParam("max_chars"), defaultPreviewChars, minPreviewChars, maxPreviewChars)

	preview, err := reader.FetchWithOptions(c.Request().Context(), pageURL, "", s.opts.Preview)
	if err != nil {
		msg := err.Error()
		return success(c, documentPreview{URL: pageURL, PreviewError: &msg})
	}

	// Language is detected on the full text; detection on a truncated
	// snippet is less reliable for short pages.
	language := s.opts.DetectLanguage(preview.Text)
	text, truncated := reader.TruncateText(preview.Text, maxChars)

	return success(c, documentPreview{
		URL:         preview.URL,
		Excerpt:     preview.Excerpt,
		PreviewText: text,
		WordCount:   preview.WordCount,
		CharCount:   utf8.RuneCountInString(text),
		Truncated:   truncated,
		Language:    language,
	})
}
