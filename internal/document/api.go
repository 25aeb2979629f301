package document

import "context"

// SaveRequest mirrors the Reader save endpoint. URL is the only required
// field; everything else is optional metadata. When HTML is set Reader skips
// its own fetch and parses the supplied markup instead.
type SaveRequest struct {
	URL             string
	HTML            string
	ShouldCleanHTML bool
	Title           string
	Author          string
	Summary         string
	PublishedDate   string
	ImageURL        string
	Location        string
	Category        string
	SavedUsing      string
	Tags            []string
	Notes           string
}

// SaveResult reports what the save endpoint did. Created is false when the
// URL was already in the library and the existing document was returned.
type SaveResult struct {
	ID      string
	URL     string
	Created bool
}

// ListParams are the supported /list/ filters. Zero values are omitted from
// the request.
type ListParams struct {
	ID           string
	UpdatedAfter string
	Location     string
	Category     string
	Tag          string
	WithHTML     bool
	PageCursor   string
}

// Page is one page of /list/ results. Count is the total number of matching
// documents, not the page size.
type Page struct {
	Count          int        `json:"count"`
	NextPageCursor string     `json:"nextPageCursor"`
	Results        []Document `json:"results"`
}

// UpdateFields carries the PATCH-able metadata fields. Empty strings are
// omitted from the request, so a field cannot be cleared through this type.
type UpdateFields struct {
	Title         string
	Author        string
	Summary       string
	PublishedDate string
	ImageURL      string
	Location      string
	Category      string
}

func (f UpdateFields) IsZero() bool {
	return f == UpdateFields{}
}

// Tag is an entry from the Reader tag list.
type Tag struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// TagPage is one page of /tags/ results.
type TagPage struct {
	Count          int    `json:"count"`
	NextPageCursor string `json:"nextPageCursor"`
	Results        []Tag  `json:"results"`
}

// API is the slice of the Reader client that the document and tag services
// drive. *readwise.Client implements it.
type API interface {
	SaveDocument(ctx context.Context, req SaveRequest) (SaveResult, error)
	ListDocuments(ctx context.Context, params ListParams) (Page, error)
	ListAllDocuments(ctx context.Context, params ListParams) ([]Document, error)
	UpdateDocument(ctx context.Context, id string, fields UpdateFields) (Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListAllTags(ctx context.Context) ([]Tag, error)
}
