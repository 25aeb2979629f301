// Package document defines the Reader document model and the
// document-management operations built on top of the remote API.
package document

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Locations recognized by Readwise Reader.
var ValidLocations = []string{"new", "later", "archive", "feed"}

// Categories recognized by Readwise Reader.
var ValidCategories = []string{
	"article", "email", "rss", "highlight", "note", "pdf", "epub", "tweet", "video",
}

func IsValidLocation(location string) bool {
	for _, l := range ValidLocations {
		if location == l {
			return true
		}
	}
	return false
}

func IsValidCategory(category string) bool {
	for _, c := range ValidCategories {
		if category == c {
			return true
		}
	}
	return false
}

// Document is a single Reader item as returned by the Readwise API. String
// fields keep exactly what the API sent; absent and empty values are not
// distinguished. URL is the Reader permalink, SourceURL the original article
// URL.
type Document struct {
	ID              string   `json:"id"`
	URL             string   `json:"url,omitempty"`
	SourceURL       string   `json:"source_url,omitempty"`
	Title           string   `json:"title,omitempty"`
	Author          string   `json:"author,omitempty"`
	Source          string   `json:"source,omitempty"`
	Category        string   `json:"category,omitempty"`
	Location        string   `json:"location,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	SiteName        string   `json:"site_name,omitempty"`
	WordCount       int      `json:"word_count,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	PublishedDate   string   `json:"published_date,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty"`
	UpdatedAt       string   `json:"updated_at,omitempty"`
	SavedAt         string   `json:"saved_at,omitempty"`
	LastMovedAt     string   `json:"last_moved_at,omitempty"`
	FirstOpenedAt   string   `json:"first_opened_at,omitempty"`
	LastOpenedAt    string   `json:"last_opened_at,omitempty"`
	ReadingProgress float64  `json:"reading_progress,omitempty"`
	ParentID        string   `json:"parent_id,omitempty"`
}

// UnmarshalJSON normalizes the wire quirks at the ingestion boundary: tags
// arrive either as an object keyed by tag key or as an array, and
// published_date is sometimes a unix-milliseconds number instead of a string.
func (d *Document) UnmarshalJSON(data []byte) error {
	type alias Document
	aux := struct {
		*alias
		Tags          json.RawMessage `json:"tags"`
		PublishedDate json.RawMessage `json:"published_date"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Tags = decodeTags(aux.Tags)
	d.PublishedDate = decodeLooseString(aux.PublishedDate)
	return nil
}

// decodeTags accepts the three tag shapes seen in the wild: an array of
// strings, an array of {key,name} objects, or an object keyed by tag key.
// Array order is preserved; object keys are sorted for determinism.
func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names
	}

	var objects []struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &objects); err == nil {
		names = make([]string, 0, len(objects))
		for _, o := range objects {
			if o.Name != "" {
				names = append(names, o.Name)
				continue
			}
			if o.Key != "" {
				names = append(names, o.Key)
			}
		}
		return names
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil {
		names = make([]string, 0, len(keyed))
		for key := range keyed {
			names = append(names, key)
		}
		sort.Strings(names)
		return names
	}

	return nil
}

func decodeLooseString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// BestURL prefers the original article URL over the Reader permalink. URL
// grouping keys are built from it.
func (d Document) BestURL() string {
	if d.SourceURL != "" {
		return d.SourceURL
	}
	return d.URL
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp formats that show up in API payloads and
// CSV exports. ok is false for anything unrecognized; callers treat those
// values as absent rather than failing.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
