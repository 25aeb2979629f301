package dedup

import (
	"strings"
	"unicode/utf8"

	"horse.fit/shelf/internal/document"
	"horse.fit/shelf/internal/globaltime"
)

const maxQualityScore = 100

var shortenerHints = []string{"bit.ly", "t.co", "tinyurl", "short"}

// QualityScore rates metadata completeness on a 0-100 scale. Duplicate
// groups keep their highest-scoring member. Lengths are counted in runes so
// CJK titles are weighted like Latin ones.
func QualityScore(doc document.Document) int {
	score := 0

	title := strings.TrimSpace(doc.Title)
	switch n := utf8.RuneCountInString(title); {
	case n > 10:
		score += 25
	case n > 5:
		score += 15
	case n > 0:
		score += 5
	}

	author := strings.TrimSpace(doc.Author)
	if author != "" && author != "Unknown" {
		score += 15
	}

	summary := strings.TrimSpace(doc.Summary)
	switch n := utf8.RuneCountInString(summary); {
	case n > 100:
		score += 20
	case n > 50:
		score += 15
	case n > 0:
		score += 10
	}

	if doc.PublishedDate != "" || doc.CreatedAt != "" {
		score += 10
	}

	switch {
	case len(doc.Tags) >= 3:
		score += 10
	case len(doc.Tags) >= 1:
		score += 5
	}

	if url := doc.BestURL(); url != "" {
		if isShortenedURL(url) {
			score += 5
		} else {
			score += 10
		}
	}

	score += recencyPoints(doc.UpdatedAt)

	if score > maxQualityScore {
		score = maxQualityScore
	}
	return score
}

func isShortenedURL(url string) bool {
	for _, hint := range shortenerHints {
		if strings.Contains(url, hint) {
			return true
		}
	}
	return false
}

// recencyPoints rewards recently-updated documents. Unparseable timestamps
// contribute nothing rather than erroring.
func recencyPoints(updatedAt string) int {
	t, ok := document.ParseTime(updatedAt)
	if !ok {
		return 0
	}

	days := int(globaltime.Now().UTC().Sub(t).Hours() / 24)
	switch {
	case days < 30:
		return 10
	case days < 90:
		return 5
	}
	return 0
}
