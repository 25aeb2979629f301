package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/shelf/internal/document"
)

type analyzeDuplicatesRequest struct {
	Location string `json:"location"`
	Limit    int    `json:"limit"`
}

// handleAnalyzeDuplicates runs a read-only duplicate analysis over the live
// library. Nothing is deleted through this endpoint.
func (s *Server) handleAnalyzeDuplicates(c echo.Context) error {
	var req analyzeDuplicatesRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid JSON body", nil)
	}

	req.Location = strings.TrimSpace(req.Location)
	if req.Location != "" && !document.IsValidLocation(req.Location) {
		return failValidation(c, map[string]string{
			"location": "must be one of " + strings.Join(document.ValidLocations, ", "),
		})
	}
	if req.Limit < 0 {
		return failValidation(c, map[string]string{"limit": "must not be negative"})
	}

	analysis, err := s.dedup.AnalyzeLibrary(c.Request().Context(), req.Location, req.Limit)
	if err != nil {
		return internalError(c, "Duplicate analysis failed")
	}
	return success(c, analysis)
}
