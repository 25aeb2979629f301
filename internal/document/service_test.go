package document

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type fakeAPI struct {
	saveFunc    func(ctx context.Context, req SaveRequest) (SaveResult, error)
	listFunc    func(ctx context.Context, params ListParams) (Page, error)
	listAllFunc func(ctx context.Context, params ListParams) ([]Document, error)
	updateFunc  func(ctx context.Context, id string, fields UpdateFields) (Document, error)
	deleteFunc  func(ctx context.Context, id string) error
	tagsFunc    func(ctx context.Context) ([]Tag, error)
}

func (f *fakeAPI) SaveDocument(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if f.saveFunc == nil {
		return SaveResult{}, nil
	}
	return f.saveFunc(ctx, req)
}

func (f *fakeAPI) ListDocuments(ctx context.Context, params ListParams) (Page, error) {
	if f.listFunc == nil {
		return Page{}, nil
	}
	return f.listFunc(ctx, params)
}

func (f *fakeAPI) ListAllDocuments(ctx context.Context, params ListParams) ([]Document, error) {
	if f.listAllFunc == nil {
		return nil, nil
	}
	return f.listAllFunc(ctx, params)
}

func (f *fakeAPI) UpdateDocument(ctx context.Context, id string, fields UpdateFields) (Document, error) {
	if f.updateFunc == nil {
		return Document{}, nil
	}
	return f.updateFunc(ctx, id, fields)
}

func (f *fakeAPI) DeleteDocument(ctx context.Context, id string) error {
	if f.deleteFunc == nil {
		return nil
	}
	return f.deleteFunc(ctx, id)
}

func (f *fakeAPI) ListAllTags(ctx context.Context) ([]Tag, error) {
	if f.tagsFunc == nil {
		return nil, nil
	}
	return f.tagsFunc(ctx)
}

func newTestService(api API) *Service {
	return NewService(api, zerolog.Nop())
}

func TestAddArticleDefaults(t *testing.T) {
	t.Parallel()

	var captured SaveRequest
	api := &fakeAPI{
		saveFunc: func(_ context.Context, req SaveRequest) (SaveResult, error) {
			captured = req
			return SaveResult{ID: "01a", Created: true}, nil
		},
	}

	result, err := newTestService(api).AddArticle(context.Background(), SaveRequest{URL: "https://example.com/post"})
	if err != nil {
		t.Fatalf("AddArticle: %v", err)
	}
	if result.ID != "01a" || !result.Created {
		t.Fatalf("result = %+v", result)
	}
	if captured.Category != "article" {
		t.Fatalf("category = %q, want %q", captured.Category, "article")
	}
	if captured.SavedUsing != "shelf" {
		t.Fatalf("saved_using = %q, want %q", captured.SavedUsing, "shelf")
	}
}

func TestAddArticleValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeAPI{})

	if _, err := svc.AddArticle(context.Background(), SaveRequest{}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := svc.AddArticle(context.Background(), SaveRequest{URL: "https://example.com", Location: "inbox"}); err == nil {
		t.Fatal("expected error for invalid location")
	}
}

func TestAddFromHTML(t *testing.T) {
	t.Parallel()

	var captured SaveRequest
	api := &fakeAPI{
		saveFunc: func(_ context.Context, req SaveRequest) (SaveResult, error) {
			captured = req
			return SaveResult{ID: "01b"}, nil
		},
	}
	svc := newTestService(api)

	if _, err := svc.AddFromHTML(context.Background(), SaveRequest{URL: "https://example.com"}); err == nil {
		t.Fatal("expected error for missing html")
	}

	req := SaveRequest{URL: "https://example.com", HTML: "<p>hi</p>"}
	if _, err := svc.AddFromHTML(context.Background(), req); err != nil {
		t.Fatalf("AddFromHTML: %v", err)
	}
	if !captured.ShouldCleanHTML {
		t.Fatal("should_clean_html not set")
	}
}

func TestGetDocumentsLimit(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		listFunc: func(_ context.Context, _ ListParams) (Page, error) {
			return Page{
				Count:   3,
				Results: []Document{{ID: "a"}, {ID: "b"}, {ID: "c"}},
			}, nil
		},
	}
	svc := newTestService(api)

	docs, err := svc.GetDocuments(context.Background(), "later", "", 2)
	if err != nil {
		t.Fatalf("GetDocuments: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Fatalf("docs = %+v", docs)
	}

	docs, err = svc.GetDocuments(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("GetDocuments: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len(docs) = %d, want 3", len(docs))
	}

	if _, err := svc.GetDocuments(context.Background(), "inbox", "", 0); err == nil {
		t.Fatal("expected error for invalid location")
	}
}

func TestSearchDocuments(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		listAllFunc: func(_ context.Context, _ ListParams) ([]Document, error) {
			return []Document{
				{ID: "a", Title: "Understanding Go Generics"},
				{ID: "b", Title: "A pasta recipe"},
				{ID: "c", Title: "GO CONCURRENCY PATTERNS"},
			}, nil
		},
	}
	svc := newTestService(api)

	docs, err := svc.SearchDocuments(context.Background(), "go", "")
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "c" {
		t.Fatalf("docs = %+v", docs)
	}

	if _, err := svc.SearchDocuments(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected error for blank query")
	}
}

func TestGetDocumentByID(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		listFunc: func(_ context.Context, params ListParams) (Page, error) {
			if params.ID == "01a" {
				return Page{Count: 1, Results: []Document{{ID: "01a", Title: "found"}}}, nil
			}
			return Page{}, nil
		},
	}
	svc := newTestService(api)

	doc, err := svc.GetDocumentByID(context.Background(), "01a")
	if err != nil {
		t.Fatalf("GetDocumentByID: %v", err)
	}
	if doc.Title != "found" {
		t.Fatalf("doc = %+v", doc)
	}

	if _, err := svc.GetDocumentByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMoveDocument(t *testing.T) {
	t.Parallel()

	var gotFields UpdateFields
	api := &fakeAPI{
		updateFunc: func(_ context.Context, id string, fields UpdateFields) (Document, error) {
			gotFields = fields
			return Document{ID: id, Location: fields.Location}, nil
		},
	}
	svc := newTestService(api)

	doc, err := svc.MoveDocument(context.Background(), "01a", "archive")
	if err != nil {
		t.Fatalf("MoveDocument: %v", err)
	}
	if doc.Location != "archive" || gotFields.Location != "archive" {
		t.Fatalf("doc = %+v, fields = %+v", doc, gotFields)
	}

	if _, err := svc.MoveDocument(context.Background(), "01a", "trash"); err == nil {
		t.Fatal("expected error for invalid location")
	}
}

func TestUpdateMetadataRequiresFields(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeAPI{})
	if _, err := svc.UpdateMetadata(context.Background(), "01a", UpdateFields{}); err == nil {
		t.Fatal("expected error for empty field set")
	}
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	counts := map[string]int{"new": 5, "later": 12, "archive": 40, "feed": 0}
	api := &fakeAPI{
		listFunc: func(_ context.Context, params ListParams) (Page, error) {
			return Page{Count: counts[params.Location]}, nil
		},
	}
	svc := newTestService(api)

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Total != 57 {
		t.Fatalf("total = %d, want 57", stats.Total)
	}
	if len(stats.Locations) != 4 {
		t.Fatalf("locations = %+v", stats.Locations)
	}
	if stats.Locations[0].Location != "new" || stats.Locations[0].Count != 5 {
		t.Fatalf("first row = %+v", stats.Locations[0])
	}
}

func TestExportJSON(t *testing.T) {
	t.Parallel()

	docs := []Document{
		{ID: "a", Title: "One", Location: "later"},
		{ID: "b", Title: "Two", Location: "later"},
	}
	api := &fakeAPI{
		listAllFunc: func(_ context.Context, params ListParams) ([]Document, error) {
			if params.Location != "later" {
				t.Errorf("location = %q, want later", params.Location)
			}
			return docs, nil
		},
	}
	svc := newTestService(api)

	path := filepath.Join(t.TempDir(), "export.json")
	name, count, err := svc.ExportJSON(context.Background(), "later", path)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if name != path || count != 2 {
		t.Fatalf("name = %q count = %d", name, count)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var decoded []Document
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(decoded) != 2 || decoded[0].ID != "a" {
		t.Fatalf("decoded = %+v", decoded)
	}
}
