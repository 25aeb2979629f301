// Package readwise implements the Readwise Reader v3 HTTP client.
package readwise

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/shelf/internal/document"
)

const (
	DefaultBaseURL = "https://readwise.io/api/v3"
	DefaultAuthURL = "https://readwise.io/api/v2/auth/"
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "shelf/1.0 (+https://horse.fit/shelf)"

	maxResponseBytes = 8 << 20
)

// Options configures a Client. Zero values take the defaults above.
type Options struct {
	BaseURL    string
	AuthURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client is a thin typed wrapper over the Reader REST endpoints. It does not
// retry rate-limit responses on single calls; that policy belongs to the
// caller. The ListAll helpers do wait and retry because a partial listing is
// useless to every caller they have.
type Client struct {
	baseURL   string
	authURL   string
	userAgent string
	token     string
	http      *http.Client
	logger    zerolog.Logger
}

func NewClient(token string, opts Options) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("readwise: token is required")
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	authURL := opts.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:   baseURL,
		authURL:   authURL,
		userAgent: userAgent,
		token:     token,
		http:      httpClient,
		logger:    opts.Logger,
	}, nil
}

// VerifyToken checks the access token against the v2 auth endpoint, which
// answers 204 for a valid token.
func (c *Client) VerifyToken(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, c.authURL, nil, nil)
	if err != nil {
		if isStatus(err, http.StatusUnauthorized) || isStatus(err, http.StatusForbidden) {
			return fmt.Errorf("readwise: access token rejected: %w", err)
		}
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return fmt.Errorf("readwise: unexpected auth status %d", status)
	}
	return nil
}

// SaveDocument saves a URL (or pre-fetched HTML) to the library. Created is
// false when the URL already existed and Reader returned the existing
// document.
func (c *Client) SaveDocument(ctx context.Context, req document.SaveRequest) (document.SaveResult, error) {
	payload := map[string]any{"url": req.URL}
	if req.HTML != "" {
		payload["html"] = req.HTML
		payload["should_clean_html"] = req.ShouldCleanHTML
	}
	setString(payload, "title", req.Title)
	setString(payload, "author", req.Author)
	setString(payload, "summary", req.Summary)
	setString(payload, "published_date", req.PublishedDate)
	setString(payload, "image_url", req.ImageURL)
	setString(payload, "location", req.Location)
	setString(payload, "category", req.Category)
	setString(payload, "saved_using", req.SavedUsing)
	setString(payload, "notes", req.Notes)
	if len(req.Tags) > 0 {
		payload["tags"] = req.Tags
	}

	var body struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	status, err := c.do(ctx, http.MethodPost, c.baseURL+"/save/", payload, &body)
	if err != nil {
		return document.SaveResult{}, err
	}
	return document.SaveResult{ID: body.ID, URL: body.URL, Created: status == http.StatusCreated}, nil
}

// ListDocuments fetches a single page of /list/ results.
func (c *Client) ListDocuments(ctx context.Context, params document.ListParams) (document.Page, error) {
	values := url.Values{}
	if params.ID != "" {
		values.Set("id", params.ID)
	}
	if params.UpdatedAfter != "" {
		values.Set("updatedAfter", params.UpdatedAfter)
	}
	if params.Location != "" {
		values.Set("location", params.Location)
	}
	if params.Category != "" {
		values.Set("category", params.Category)
	}
	if params.Tag != "" {
		values.Set("tag", params.Tag)
	}
	if params.WithHTML {
		values.Set("withHtmlContent", "true")
	}
	if params.PageCursor != "" {
		values.Set("pageCursor", params.PageCursor)
	}

	endpoint := c.baseURL + "/list/"
	if encoded := values.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var page document.Page
	if _, err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return document.Page{}, err
	}
	return page, nil
}

// ListAllDocuments walks every page of /list/ matching params. Rate-limit
// responses are retried after the server-suggested wait (one minute when the
// server gives none); any other error aborts the walk.
func (c *Client) ListAllDocuments(ctx context.Context, params document.ListParams) ([]document.Document, error) {
	var all []document.Document
	cursor := params.PageCursor
	for {
		pageParams := params
		pageParams.PageCursor = cursor

		page, err := c.ListDocuments(ctx, pageParams)
		if IsRateLimited(err) {
			wait := RetryAfter(err, time.Minute)
			c.logger.Warn().Dur("wait", wait).Msg("rate limited while listing documents")
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		all = append(all, page.Results...)
		if page.NextPageCursor == "" {
			return all, nil
		}
		cursor = page.NextPageCursor
	}
}

// UpdateDocument patches the non-empty fields and returns the updated
// document.
func (c *Client) UpdateDocument(ctx context.Context, id string, fields document.UpdateFields) (document.Document, error) {
	payload := map[string]any{}
	setString(payload, "title", fields.Title)
	setString(payload, "author", fields.Author)
	setString(payload, "summary", fields.Summary)
	setString(payload, "published_date", fields.PublishedDate)
	setString(payload, "image_url", fields.ImageURL)
	setString(payload, "location", fields.Location)
	setString(payload, "category", fields.Category)
	if len(payload) == 0 {
		return document.Document{}, fmt.Errorf("readwise: no fields to update")
	}

	var doc document.Document
	endpoint := fmt.Sprintf("%s/update/%s/", c.baseURL, url.PathEscape(id))
	if _, err := c.do(ctx, http.MethodPatch, endpoint, payload, &doc); err != nil {
		return document.Document{}, err
	}
	return doc, nil
}

// DeleteDocument removes a document. A 429 comes back as an *APIError with
// RetryAfter set; the caller decides whether to wait.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/delete/%s/", c.baseURL, url.PathEscape(id))
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil, nil)
	return err
}

// ListTags fetches a single page of /tags/ results.
func (c *Client) ListTags(ctx context.Context, pageCursor string) (document.TagPage, error) {
	endpoint := c.baseURL + "/tags/"
	if pageCursor != "" {
		endpoint += "?pageCursor=" + url.QueryEscape(pageCursor)
	}

	var page document.TagPage
	if _, err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return document.TagPage{}, err
	}
	return page, nil
}

// ListAllTags walks every page of /tags/ with the same rate-limit policy as
// ListAllDocuments.
func (c *Client) ListAllTags(ctx context.Context) ([]document.Tag, error) {
	var all []document.Tag
	cursor := ""
	for {
		page, err := c.ListTags(ctx, cursor)
		if IsRateLimited(err) {
			wait := RetryAfter(err, time.Minute)
			c.logger.Warn().Dur("wait", wait).Msg("rate limited while listing tags")
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		all = append(all, page.Results...)
		if page.NextPageCursor == "" {
			return all, nil
		}
		cursor = page.NextPageCursor
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("readwise: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("readwise: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("readwise: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("readwise: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, newAPIError(resp, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("readwise: decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func newAPIError(resp *http.Response, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
		apiErr.Message = detail.Detail
	} else if len(raw) > 0 {
		apiErr.Message = truncateBody(string(raw), 200)
	}
	return apiErr
}

func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func setString(payload map[string]any, key, value string) {
	if value != "" {
		payload[key] = value
	}
}

func truncateBody(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
