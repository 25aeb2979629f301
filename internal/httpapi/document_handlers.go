package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/shelf/internal/document"
	"horse.fit/shelf/internal/readwise"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

type saveDocumentRequest struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Summary       string   `json:"summary"`
	PublishedDate string   `json:"published_date"`
	ImageURL      string   `json:"image_url"`
	Location      string   `json:"location"`
	Category      string   `json:"category"`
	Notes         string   `json:"notes"`
	Tags          []string `json:"tags"`
}

type updateDocumentRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Summary       string `json:"summary"`
	PublishedDate string `json:"published_date"`
	ImageURL      string `json:"image_url"`
	Location      string `json:"location"`
	Category      string `json:"category"`
}

func (s *Server) handleListDocuments(c echo.Context) error {
	location := strings.TrimSpace(c.QueryParam("location"))
	category := strings.TrimSpace(c.QueryParam("category"))
	tag := strings.TrimSpace(c.QueryParam("tag"))
	limit := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)

	if fieldErrors := validateFilters(location, category); len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	ctx := c.Request().Context()
	var (
		docs []document.Document
		err  error
	)
	if tag != "" {
		docs, err = s.tags.DocumentsByTag(ctx, tag, location)
		if err == nil && limit > 0 && len(docs) > limit {
			docs = docs[:limit]
		}
	} else {
		docs, err = s.docs.GetDocuments(ctx, location, category, limit)
	}
	if err != nil {
		return internalError(c, "Failed to list documents")
	}

	return success(c, map[string]any{
		"count": len(docs),
		"items": docs,
	})
}

func (s *Server) handleSaveDocument(c echo.Context) error {
	var req saveDocumentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid JSON body", nil)
	}

	if strings.TrimSpace(req.URL) == "" {
		return failUnprocessable(c, map[string]string{"url": "is required"})
	}
	if fieldErrors := validateFilters(req.Location, req.Category); len(fieldErrors) > 0 {
		return failUnprocessable(c, fieldErrors)
	}

	result, err := s.docs.AddArticle(c.Request().Context(), document.SaveRequest{
		URL:           strings.TrimSpace(req.URL),
		Title:         strings.TrimSpace(req.Title),
		Author:        strings.TrimSpace(req.Author),
		Summary:       strings.TrimSpace(req.Summary),
		PublishedDate: strings.TrimSpace(req.PublishedDate),
		ImageURL:      strings.TrimSpace(req.ImageURL),
		Location:      req.Location,
		Category:      req.Category,
		Notes:         strings.TrimSpace(req.Notes),
		Tags:          req.Tags,
	})
	if err != nil {
		return internalError(c, "Failed to save document")
	}

	// 200 when the URL was already in the library, 201 on a fresh save.
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return successWithStatus(c, status, map[string]any{
		"id":      result.ID,
		"url":     result.URL,
		"created": result.Created,
	})
}

func (s *Server) handleDocumentStats(c echo.Context) error {
	stats, err := s.docs.GetStats(c.Request().Context())
	if err != nil {
		return internalError(c, "Failed to compute stats")
	}
	return success(c, stats)
}

func (s *Server) handleUpdateDocument(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return failValidation(c, map[string]string{"id": "is required"})
	}

	var req updateDocumentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid JSON body", nil)
	}

	fields := document.UpdateFields{
		Title:         strings.TrimSpace(req.Title),
		Author:        strings.TrimSpace(req.Author),
		Summary:       strings.TrimSpace(req.Summary),
		PublishedDate: strings.TrimSpace(req.PublishedDate),
		ImageURL:      strings.TrimSpace(req.ImageURL),
		Location:      strings.TrimSpace(req.Location),
		Category:      strings.TrimSpace(req.Category),
	}
	if fields.IsZero() {
		return failUnprocessable(c, map[string]string{"fields": "at least one field is required"})
	}
	if fieldErrors := validateFilters(fields.Location, fields.Category); len(fieldErrors) > 0 {
		return failUnprocessable(c, fieldErrors)
	}

	doc, err := s.docs.UpdateMetadata(c.Request().Context(), id, fields)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) || readwise.IsNotFound(err) {
			return failNotFound(c, "Document not found")
		}
		return internalError(c, "Failed to update document")
	}
	return success(c, doc)
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return failValidation(c, map[string]string{"id": "is required"})
	}

	if err := s.docs.DeleteDocument(c.Request().Context(), id); err != nil {
		if readwise.IsNotFound(err) {
			return failNotFound(c, "Document not found")
		}
		return internalError(c, "Failed to delete document")
	}
	return success(c, map[string]any{
		"id":      id,
		"deleted": true,
	})
}

func (s *Server) handleListTags(c echo.Context) error {
	tags, err := s.tags.ListTags(c.Request().Context())
	if err != nil {
		return internalError(c, "Failed to list tags")
	}
	return success(c, map[string]any{
		"count": len(tags),
		"items": tags,
	})
}

// validateFilters checks the optional location and category values shared by
// the list, save and update handlers.
func validateFilters(location, category string) map[string]string {
	fieldErrors := make(map[string]string)
	if location != "" && !document.IsValidLocation(location) {
		fieldErrors["location"] = "must be one of " + strings.Join(document.ValidLocations, ", ")
	}
	if category != "" && !document.IsValidCategory(category) {
		fieldErrors["category"] = "must be one of " + strings.Join(document.ValidCategories, ", ")
	}
	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}
