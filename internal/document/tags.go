package document

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// TagService implements tag browsing and usage reporting.
type TagService struct {
	api    API
	logger zerolog.Logger
}

func NewTagService(api API, logger zerolog.Logger) *TagService {
	return &TagService{api: api, logger: logger}
}

func (s *TagService) ListTags(ctx context.Context) ([]Tag, error) {
	tags, err := s.api.ListAllTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// SearchTags filters the tag list by case-insensitive name substring.
func (s *TagService) SearchTags(ctx context.Context, query string) ([]Tag, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	tags, err := s.api.ListAllTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	needle := strings.ToLower(query)
	matches := make([]Tag, 0)
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag.Name), needle) {
			matches = append(matches, tag)
		}
	}
	return matches, nil
}

// DocumentsByTag returns every document carrying the tag, optionally
// narrowed to one location.
func (s *TagService) DocumentsByTag(ctx context.Context, tag, location string) ([]Document, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, fmt.Errorf("tag is required")
	}
	if location != "" && !IsValidLocation(location) {
		return nil, fmt.Errorf("invalid location %q (valid: %s)", location, strings.Join(ValidLocations, ", "))
	}

	docs, err := s.api.ListAllDocuments(ctx, ListParams{Tag: tag, Location: location})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// TagCount is one row of the usage report.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// UsageStats walks the whole library and counts how many documents carry
// each tag, most used first. Ties break alphabetically so the report is
// stable.
func (s *TagService) UsageStats(ctx context.Context) ([]TagCount, error) {
	docs, err := s.api.ListAllDocuments(ctx, ListParams{})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	counts := make(map[string]int)
	for _, doc := range docs {
		for _, name := range doc.Tags {
			if name == "" {
				continue
			}
			counts[name]++
		}
	}

	usage := make([]TagCount, 0, len(counts))
	for name, count := range counts {
		usage = append(usage, TagCount{Name: name, Count: count})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Count != usage[j].Count {
			return usage[i].Count > usage[j].Count
		}
		return usage[i].Name < usage[j].Name
	})
	return usage, nil
}

// PopularTags returns the top limit entries of the usage report.
func (s *TagService) PopularTags(ctx context.Context, limit int) ([]TagCount, error) {
	usage, err := s.UsageStats(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(usage) > limit {
		usage = usage[:limit]
	}
	return usage, nil
}

// UnusedTags returns tags that exist in the tag list but appear on no
// document.
func (s *TagService) UnusedTags(ctx context.Context) ([]Tag, error) {
	tags, err := s.api.ListAllTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	usage, err := s.UsageStats(ctx)
	if err != nil {
		return nil, err
	}
	used := make(map[string]struct{}, len(usage))
	for _, u := range usage {
		used[u.Name] = struct{}{}
	}

	unused := make([]Tag, 0)
	for _, tag := range tags {
		if _, ok := used[tag.Name]; !ok {
			unused = append(unused, tag)
		}
	}
	return unused, nil
}
