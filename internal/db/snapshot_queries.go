package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"horse.fit/shelf/internal/document"
)

// UpsertSnapshots writes one snapshot row per document inside a single
// transaction and returns the number of rows written.
func (p *Pool) UpsertSnapshots(ctx context.Context, docs []document.Document, syncedAt time.Time) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
INSERT INTO shelf.document_snapshots (
	id, url, source_url, title, author, source, category, location, tags,
	site_name, word_count, summary, notes, image_url, published_date,
	created_at, updated_at, saved_at, synced_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id)
DO UPDATE SET
	url = EXCLUDED.url,
	source_url = EXCLUDED.source_url,
	title = EXCLUDED.title,
	author = EXCLUDED.author,
	source = EXCLUDED.source,
	category = EXCLUDED.category,
	location = EXCLUDED.location,
	tags = EXCLUDED.tags,
	site_name = EXCLUDED.site_name,
	word_count = EXCLUDED.word_count,
	summary = EXCLUDED.summary,
	notes = EXCLUDED.notes,
	image_url = EXCLUDED.image_url,
	published_date = EXCLUDED.published_date,
	created_at = EXCLUDED.created_at,
	updated_at = EXCLUDED.updated_at,
	saved_at = EXCLUDED.saved_at,
	synced_at = EXCLUDED.synced_at
`

	written := 0
	for _, doc := range docs {
		id := strings.TrimSpace(doc.ID)
		if id == "" {
			continue
		}
		if _, err := tx.Exec(ctx, q,
			id,
			doc.URL,
			doc.SourceURL,
			doc.Title,
			doc.Author,
			doc.Source,
			doc.Category,
			doc.Location,
			joinTags(doc.Tags),
			doc.SiteName,
			doc.WordCount,
			doc.Summary,
			doc.Notes,
			doc.ImageURL,
			doc.PublishedDate,
			doc.CreatedAt,
			doc.UpdatedAt,
			doc.SavedAt,
			syncedAt.UTC(),
		); err != nil {
			return 0, fmt.Errorf("upsert snapshot %s: %w", id, err)
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit snapshots: %w", err)
	}
	return written, nil
}

// PruneSnapshots removes rows not touched by the given sync pass. A non-empty
// location restricts pruning to that location so partial syncs never evict
// other locations.
func (p *Pool) PruneSnapshots(ctx context.Context, location string, syncedBefore time.Time) (int64, error) {
	const q = `
DELETE FROM shelf.document_snapshots
WHERE synced_at < $1
  AND ($2 = '' OR location = $2)
`
	tag, err := p.Exec(ctx, q, syncedBefore.UTC(), strings.TrimSpace(location))
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListSnapshots returns cached documents, optionally filtered by location,
// ordered by id for stable output.
func (p *Pool) ListSnapshots(ctx context.Context, location string) ([]document.Document, error) {
	const q = `
SELECT
	id, url, source_url, title, author, source, category, location, tags,
	site_name, word_count, summary, notes, image_url, published_date,
	created_at, updated_at, saved_at
FROM shelf.document_snapshots
WHERE ($1 = '' OR location = $1)
ORDER BY id
`
	rows, err := p.Query(ctx, q, strings.TrimSpace(location))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	docs := make([]document.Document, 0, 64)
	for rows.Next() {
		var row DocumentSnapshot
		if err := rows.Scan(
			&row.ID,
			&row.URL,
			&row.SourceURL,
			&row.Title,
			&row.Author,
			&row.Source,
			&row.Category,
			&row.Location,
			&row.Tags,
			&row.SiteName,
			&row.WordCount,
			&row.Summary,
			&row.Notes,
			&row.ImageURL,
			&row.PublishedDate,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.SavedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		docs = append(docs, row.document())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return docs, nil
}

// CountSnapshots returns the number of cached documents, optionally filtered
// by location.
func (p *Pool) CountSnapshots(ctx context.Context, location string) (int64, error) {
	const q = `
SELECT COUNT(*)
FROM shelf.document_snapshots
WHERE ($1 = '' OR location = $1)
`
	var count int64
	if err := p.QueryRow(ctx, q, strings.TrimSpace(location)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return count, nil
}

func (s DocumentSnapshot) document() document.Document {
	return document.Document{
		ID:            s.ID,
		URL:           s.URL,
		SourceURL:     s.SourceURL,
		Title:         s.Title,
		Author:        s.Author,
		Source:        s.Source,
		Category:      s.Category,
		Location:      s.Location,
		Tags:          splitTags(s.Tags),
		SiteName:      s.SiteName,
		WordCount:     s.WordCount,
		Summary:       s.Summary,
		Notes:         s.Notes,
		ImageURL:      s.ImageURL,
		PublishedDate: s.PublishedDate,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		SavedAt:       s.SavedAt,
	}
}

// joinTags flattens a tag list into one text column. Tags with embedded
// commas would not round-trip, which matches the CSV export behavior.
func joinTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	return strings.Join(cleaned, ",")
}

func splitTags(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		tags = append(tags, trimmed)
	}
	return tags
}
