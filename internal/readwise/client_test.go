package readwise

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"horse.fit/shelf/internal/document"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient("test-token", Options{
		BaseURL:    srv.URL,
		AuthURL:    srv.URL + "/auth/",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("  ", Options{}); err == nil {
		t.Fatal("expected error for blank token")
	}
}

func TestSaveDocument(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/save/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token test-token" {
			t.Errorf("authorization = %q", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["url"] != "https://example.com/post" {
			t.Errorf("payload url = %v", payload["url"])
		}
		if _, present := payload["title"]; present {
			t.Error("empty title should be omitted")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"01abc","url":"https://read.example.com/x"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	result, err := client.SaveDocument(context.Background(), document.SaveRequest{URL: "https://example.com/post"})
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if result.ID != "01abc" || !result.Created {
		t.Fatalf("result = %+v", result)
	}
}

func TestSaveDocumentExisting(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"01abc","url":"https://read.example.com/x"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	result, err := client.SaveDocument(context.Background(), document.SaveRequest{URL: "https://example.com/post"})
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if result.Created {
		t.Fatal("200 response should report Created=false")
	}
}

func TestListDocumentsParams(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/list/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("location") != "archive" || q.Get("category") != "article" || q.Get("withHtmlContent") != "true" {
			t.Errorf("query = %v", q)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"count": 1,
			"nextPageCursor": null,
			"results": [{"id":"01a","title":"One","tags":{"go":{"name":"go"}}}]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	page, err := client.ListDocuments(context.Background(), document.ListParams{
		Location: "archive",
		Category: "article",
		WithHTML: true,
	})
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if page.Count != 1 || len(page.Results) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if len(page.Results[0].Tags) != 1 || page.Results[0].Tags[0] != "go" {
		t.Fatalf("tags = %+v", page.Results[0].Tags)
	}
}

func TestListAllDocumentsPagination(t *testing.T) {
	t.Parallel()

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("pageCursor") {
		case "":
			_, _ = w.Write([]byte(`{"count":3,"nextPageCursor":"c2","results":[{"id":"a"},{"id":"b"}]}`))
		case "c2":
			_, _ = w.Write([]byte(`{"count":3,"nextPageCursor":"","results":[{"id":"c"}]}`))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("pageCursor"))
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	docs, err := client.ListAllDocuments(context.Background(), document.ListParams{})
	if err != nil {
		t.Fatalf("ListAllDocuments: %v", err)
	}
	if len(docs) != 3 || docs[2].ID != "c" {
		t.Fatalf("docs = %+v", docs)
	}
	if requests != 2 {
		t.Fatalf("requests = %d, want 2", requests)
	}
}

func TestListAllDocumentsRetriesRateLimit(t *testing.T) {
	t.Parallel()

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":1,"nextPageCursor":"","results":[{"id":"a"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	docs, err := client.ListAllDocuments(context.Background(), document.ListParams{})
	if err != nil {
		t.Fatalf("ListAllDocuments: %v", err)
	}
	if len(docs) != 1 || requests != 2 {
		t.Fatalf("docs = %d requests = %d", len(docs), requests)
	}
}

func TestUpdateDocument(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/update/01a/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if len(payload) != 1 || payload["location"] != "archive" {
			t.Errorf("payload = %v", payload)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"01a","location":"archive"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	doc, err := client.UpdateDocument(context.Background(), "01a", document.UpdateFields{Location: "archive"})
	if err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if doc.Location != "archive" {
		t.Fatalf("doc = %+v", doc)
	}

	if _, err := client.UpdateDocument(context.Background(), "01a", document.UpdateFields{}); err == nil {
		t.Fatal("expected error for empty field set")
	}
}

func TestDeleteDocumentErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/delete/gone/":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not found."}`))
		case "/delete/busy/":
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	if err := client.DeleteDocument(context.Background(), "01a"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	err := client.DeleteDocument(context.Background(), "gone")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}

	err = client.DeleteDocument(context.Background(), "busy")
	if !IsRateLimited(err) {
		t.Fatalf("err = %v, want rate-limited", err)
	}
	if got := RetryAfter(err, time.Minute); got != 30*time.Second {
		t.Fatalf("RetryAfter = %v, want 30s", got)
	}
}

func TestRetryAfterFallback(t *testing.T) {
	t.Parallel()

	err := &APIError{StatusCode: http.StatusTooManyRequests}
	if got := RetryAfter(err, time.Minute); got != time.Minute {
		t.Fatalf("RetryAfter = %v, want fallback", got)
	}
	if got := RetryAfter(nil, time.Minute); got != time.Minute {
		t.Fatalf("RetryAfter(nil) = %v, want fallback", got)
	}
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") == "Token test-token" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	if err := client.VerifyToken(context.Background()); err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}

	bad, err := NewClient("wrong", Options{BaseURL: srv.URL, AuthURL: srv.URL + "/auth/", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := bad.VerifyToken(context.Background()); err == nil {
		t.Fatal("expected error for rejected token")
	}
}

func TestListAllTagsPagination(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageCursor") == "" {
			_, _ = w.Write([]byte(`{"count":3,"nextPageCursor":"t2","results":[{"key":"go","name":"go"},{"key":"ai","name":"ai"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"count":3,"nextPageCursor":"","results":[{"key":"db","name":"db"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	tags, err := client.ListAllTags(context.Background())
	if err != nil {
		t.Fatalf("ListAllTags: %v", err)
	}
	if len(tags) != 3 || tags[2].Key != "db" {
		t.Fatalf("tags = %+v", tags)
	}
}
