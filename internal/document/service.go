package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/shelf/internal/globaltime"
)

// ErrNotFound is returned when a document id does not exist in the library.
var ErrNotFound = errors.New("document not found")

// Service implements the document-management operations on top of the
// Reader API.
type Service struct {
	api    API
	logger zerolog.Logger
}

func NewService(api API, logger zerolog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// AddArticle saves a URL to the library. Reader fetches and parses the page
// itself; the optional metadata overrides whatever it extracts.
func (s *Service) AddArticle(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if strings.TrimSpace(req.URL) == "" {
		return SaveResult{}, fmt.Errorf("url is required")
	}
	if req.Location != "" && !IsValidLocation(req.Location) {
		return SaveResult{}, fmt.Errorf("invalid location %q (valid: %s)", req.Location, strings.Join(ValidLocations, ", "))
	}
	if req.Category == "" {
		req.Category = "article"
	}
	if req.SavedUsing == "" {
		req.SavedUsing = "shelf"
	}

	result, err := s.api.SaveDocument(ctx, req)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save document: %w", err)
	}

	s.logger.Info().
		Str("id", result.ID).
		Bool("created", result.Created).
		Msg("document saved")
	return result, nil
}

// AddFromHTML saves pre-fetched markup under the given URL instead of having
// Reader fetch the page.
func (s *Service) AddFromHTML(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if strings.TrimSpace(req.HTML) == "" {
		return SaveResult{}, fmt.Errorf("html is required")
	}
	req.ShouldCleanHTML = true
	return s.AddArticle(ctx, req)
}

// GetDocuments returns up to limit documents from the first result page.
// limit <= 0 means no truncation.
func (s *Service) GetDocuments(ctx context.Context, location, category string, limit int) ([]Document, error) {
	if location != "" && !IsValidLocation(location) {
		return nil, fmt.Errorf("invalid location %q (valid: %s)", location, strings.Join(ValidLocations, ", "))
	}

	page, err := s.api.ListDocuments(ctx, ListParams{Location: location, Category: category})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := page.Results
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// SearchDocuments fetches the whole library (optionally narrowed to one
// location) and filters by case-insensitive title substring.
func (s *Service) SearchDocuments(ctx context.Context, query, location string) ([]Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if location != "" && !IsValidLocation(location) {
		return nil, fmt.Errorf("invalid location %q (valid: %s)", location, strings.Join(ValidLocations, ", "))
	}

	docs, err := s.api.ListAllDocuments(ctx, ListParams{Location: location})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	needle := strings.ToLower(query)
	matches := make([]Document, 0)
	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc.Title), needle) {
			matches = append(matches, doc)
		}
	}
	return matches, nil
}

func (s *Service) GetDocumentByID(ctx context.Context, id string) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, fmt.Errorf("document id is required")
	}

	page, err := s.api.ListDocuments(ctx, ListParams{ID: id})
	if err != nil {
		return Document{}, fmt.Errorf("list documents: %w", err)
	}
	if len(page.Results) == 0 {
		return Document{}, ErrNotFound
	}
	return page.Results[0], nil
}

// MoveDocument changes a document's location (new, later, archive, feed).
func (s *Service) MoveDocument(ctx context.Context, id, location string) (Document, error) {
	if !IsValidLocation(location) {
		return Document{}, fmt.Errorf("invalid location %q (valid: %s)", location, strings.Join(ValidLocations, ", "))
	}
	return s.UpdateMetadata(ctx, id, UpdateFields{Location: location})
}

func (s *Service) ArchiveDocument(ctx context.Context, id string) (Document, error) {
	return s.MoveDocument(ctx, id, "archive")
}

func (s *Service) SaveForLater(ctx context.Context, id string) (Document, error) {
	return s.MoveDocument(ctx, id, "later")
}

// UpdateMetadata patches the provided non-empty fields.
func (s *Service) UpdateMetadata(ctx context.Context, id string, fields UpdateFields) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, fmt.Errorf("document id is required")
	}
	if fields.IsZero() {
		return Document{}, fmt.Errorf("no fields to update")
	}
	if fields.Location != "" && !IsValidLocation(fields.Location) {
		return Document{}, fmt.Errorf("invalid location %q (valid: %s)", fields.Location, strings.Join(ValidLocations, ", "))
	}

	doc, err := s.api.UpdateDocument(ctx, id, fields)
	if err != nil {
		return Document{}, fmt.Errorf("update document %s: %w", id, err)
	}

	s.logger.Info().Str("id", id).Msg("document updated")
	return doc, nil
}

func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("document id is required")
	}
	if err := s.api.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}

	s.logger.Info().Str("id", id).Msg("document deleted")
	return nil
}

// LocationCount is one row of the per-location stats breakdown.
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// Stats summarizes library size per location.
type Stats struct {
	Total     int             `json:"total"`
	Locations []LocationCount `json:"locations"`
}

// GetStats reads the total match count from the first page of each location
// listing; no document bodies are fetched.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{Locations: make([]LocationCount, 0, len(ValidLocations))}
	for _, location := range ValidLocations {
		page, err := s.api.ListDocuments(ctx, ListParams{Location: location})
		if err != nil {
			return Stats{}, fmt.Errorf("count %s documents: %w", location, err)
		}
		stats.Locations = append(stats.Locations, LocationCount{Location: location, Count: page.Count})
		stats.Total += page.Count
	}
	return stats, nil
}

// ExportJSON writes the library (optionally one location) as a pretty JSON
// array. An empty filename picks a timestamped default in the working
// directory. Returns the filename written and the document count.
func (s *Service) ExportJSON(ctx context.Context, location, filename string) (string, int, error) {
	if location != "" && !IsValidLocation(location) {
		return "", 0, fmt.Errorf("invalid location %q (valid: %s)", location, strings.Join(ValidLocations, ", "))
	}

	docs, err := s.api.ListAllDocuments(ctx, ListParams{Location: location})
	if err != nil {
		return "", 0, fmt.Errorf("list documents: %w", err)
	}

	if filename == "" {
		if location != "" {
			filename = fmt.Sprintf("shelf_export_%s_%s.json", location, globaltime.Stamp())
		} else {
			filename = fmt.Sprintf("shelf_export_%s.json", globaltime.Stamp())
		}
	}

	payload, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", 0, fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(filename, payload, 0o644); err != nil {
		return "", 0, fmt.Errorf("write export file: %w", err)
	}

	s.logger.Info().
		Str("file", filename).
		Int("documents", len(docs)).
		Msg("library exported")
	return filename, len(docs), nil
}
