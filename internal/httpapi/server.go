// Package httpapi exposes the document library and the dedup engine over a
// JSON API. Every response uses the jsend envelope.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/shelf/internal/dedup"
	"horse.fit/shelf/internal/document"
	"horse.fit/shelf/internal/globaltime"
	"horse.fit/shelf/internal/langdetect"
	"horse.fit/shelf/internal/reader"
)

// Options configures the API server. Zero values fall back to defaults.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// AllowedOrigins configures CORS. Empty allows any origin.
	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Preview tunes the outbound fetches made by the preview endpoint.
	Preview reader.FetchOptions

	// DetectLanguage classifies preview text. Defaults to
	// langdetect.DetectISO6391.
	DetectLanguage func(text string) string
}

func (o *Options) applyDefaults() {
	if strings.TrimSpace(o.Addr) == "" {
		o.Addr = ":8080"
	}
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{"*"}
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 30 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	if o.DetectLanguage == nil {
		o.DetectLanguage = langdetect.DetectISO6391
	}
}

// Server serves the library API.
type Server struct {
	docs   *document.Service
	tags   *document.TagService
	dedup  *dedup.Service
	logger zerolog.Logger
	opts   Options
}

func NewServer(docs *document.Service, tags *document.TagService, dedupSvc *dedup.Service, logger zerolog.Logger, opts Options) *Server {
	opts.applyDefaults()
	return &Server{
		docs:   docs,
		tags:   tags,
		dedup:  dedupSvc,
		logger: logger,
		opts:   opts,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	e := s.router()

	httpServer := &http.Server{
		Addr:         s.opts.Addr,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("api server shutdown")
		}
	}()

	s.logger.Info().Str("addr", s.opts.Addr).Msg("api server started")
	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Msg("api server stopped")
	return nil
}

func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := s.logger.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				evt = s.logger.Error().Err(v.Error)
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api")
	api.GET("/documents", s.handleListDocuments)
	api.POST("/documents", s.handleSaveDocument)
	api.GET("/documents/stats", s.handleDocumentStats)
	api.GET("/documents/preview", s.handlePreview)
	api.PATCH("/documents/:id", s.handleUpdateDocument)
	api.DELETE("/documents/:id", s.handleDeleteDocument)
	api.GET("/tags", s.handleListTags)
	api.POST("/duplicates/analyze", s.handleAnalyzeDuplicates)

	return e
}

// httpErrorHandler renders errors that escape a handler (unknown routes,
// panics, echo binding failures) in the jsend envelope.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("request failed")
		_ = internalError(c, message)
		return
	}
	_ = fail(c, code, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "shelf",
		"time":    globaltime.UTC().Format(time.RFC3339),
	})
}

// parsePositiveInt parses raw, falling back to defaultValue when absent or
// malformed and clamping into [minValue, maxValue].
func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return defaultValue
	}
	if parsed < minValue {
		return minValue
	}
	if parsed > maxValue {
		return maxValue
	}
	return parsed
}
