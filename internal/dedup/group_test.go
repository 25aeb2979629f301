package dedup

import (
	"strings"
	"testing"

	"horse.fit/shelf/internal/document"
)

func TestFindDuplicateGroupsByURL(t *testing.T) {
	t.Parallel()

	docs := []document.Document{
		{ID: "a", Title: "One", SourceURL: "https://example.com/post?utm_source=mail"},
		{ID: "b", Title: "Unrelated", SourceURL: "https://other.com/thing"},
		{ID: "c", Title: "Two", SourceURL: "https://example.com/post?fbclid=99"},
	}

	groups := FindDuplicateGroups(docs)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].ID != "a" || groups[0][1].ID != "c" {
		t.Fatalf("group = %+v", groups[0])
	}
}

func TestFindDuplicateGroupsByTitle(t *testing.T) {
	t.Parallel()

	docs := []document.Document{
		{ID: "a", Title: "Machine Learning Basics", SourceURL: "https://one.com/a"},
		{ID: "b", Title: "machine learning basics!!!", SourceURL: "https://two.com/b"},
		{ID: "c", Title: "Completely Different Material", SourceURL: "https://three.com/c"},
	}

	groups := FindDuplicateGroups(docs)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].ID != "a" || groups[0][1].ID != "b" {
		t.Fatalf("group = %+v", groups[0])
	}
}

func TestFindDuplicateGroupsClaimedOnce(t *testing.T) {
	t.Parallel()

	// a and b are URL duplicates; c shares a's title but must not drag a
	// into a second group, and alone it cannot form one.
	docs := []document.Document{
		{ID: "a", Title: "Shared Title Here", SourceURL: "https://example.com/x"},
		{ID: "b", Title: "Other", SourceURL: "https://example.com/x?utm_source=rss"},
		{ID: "c", Title: "Shared Title Here", SourceURL: "https://elsewhere.com/y"},
	}

	groups := FindDuplicateGroups(docs)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0][0].ID != "a" || groups[0][1].ID != "b" {
		t.Fatalf("group = %+v", groups[0])
	}
}

func TestFindDuplicateGroupsFirstSeenWins(t *testing.T) {
	t.Parallel()

	// Similarity(a,b) = 0.8, similarity(b,c) = 0.8, similarity(a,c) = 0.6:
	// c is similar to b but not to the seed a, so it stays out of the
	// cluster and cannot form a group alone.
	docs := []document.Document{
		{ID: "a", Title: strings.Repeat("a", 20), URL: "https://u1.com"},
		{ID: "b", Title: strings.Repeat("a", 16) + strings.Repeat("b", 4), URL: "https://u2.com"},
		{ID: "c", Title: strings.Repeat("a", 12) + strings.Repeat("b", 8), URL: "https://u3.com"},
	}

	groups := FindDuplicateGroups(docs)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].ID != "a" || groups[0][1].ID != "b" {
		t.Fatalf("group = %+v", groups[0])
	}
}

func TestFindDuplicateGroupsSkipsDocsWithoutID(t *testing.T) {
	t.Parallel()

	docs := []document.Document{
		{Title: "No ID", SourceURL: "https://example.com/x"},
		{Title: "No ID", SourceURL: "https://example.com/x"},
	}
	if groups := FindDuplicateGroups(docs); len(groups) != 0 {
		t.Fatalf("groups = %d, want 0", len(groups))
	}
}

func TestFindDuplicateGroupsNoURLFallsToTitlePhase(t *testing.T) {
	t.Parallel()

	docs := []document.Document{
		{ID: "a", Title: "An Article Worth Reading Twice"},
		{ID: "b", Title: "An Article Worth Reading Twice"},
	}
	groups := FindDuplicateGroups(docs)
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestSelectBestDocument(t *testing.T) {
	t.Parallel()

	// Title tiers give distinct scores: 25, 15, 5.
	low := document.Document{ID: "low", Title: "abc"}
	high := document.Document{ID: "high", Title: strings.Repeat("x", 15)}
	mid := document.Document{ID: "mid", Title: strings.Repeat("x", 8)}

	best, rest := SelectBestDocument([]document.Document{low, high, mid})
	if best.ID != "high" {
		t.Fatalf("best = %q, want high", best.ID)
	}
	if len(rest) != 2 || rest[0].ID != "mid" || rest[1].ID != "low" {
		t.Fatalf("rest = %+v", rest)
	}
}

func TestSelectBestDocumentStableTies(t *testing.T) {
	t.Parallel()

	first := document.Document{ID: "first", Title: "Same Title Length"}
	second := document.Document{ID: "second", Title: "Same Title Length"}

	best, rest := SelectBestDocument([]document.Document{first, second})
	if best.ID != "first" {
		t.Fatalf("best = %q, want first (stable tie)", best.ID)
	}
	if len(rest) != 1 || rest[0].ID != "second" {
		t.Fatalf("rest = %+v", rest)
	}
}

func TestSelectBestDocumentDegenerate(t *testing.T) {
	t.Parallel()

	if best, rest := SelectBestDocument(nil); best.ID != "" || rest != nil {
		t.Fatalf("nil input: best=%+v rest=%+v", best, rest)
	}

	only := document.Document{ID: "only"}
	best, rest := SelectBestDocument([]document.Document{only})
	if best.ID != "only" || len(rest) != 0 {
		t.Fatalf("single input: best=%+v rest=%+v", best, rest)
	}
}
