package dedup

import (
	"sort"

	"horse.fit/shelf/internal/document"
)

// titleSimilarityThreshold is the score at which two titles are considered
// the same article in the library-wide grouping pass.
const titleSimilarityThreshold = 0.8

// FindDuplicateGroups returns groups of ≥2 likely-duplicate documents using
// two phases: exact match on tracking-aware normalized URLs, then title
// similarity against each remaining unclaimed seed. Output order is URL
// groups in first-seen bucket order, then title clusters in seed order. A
// document belongs to at most one group; documents without an id are
// skipped.
func FindDuplicateGroups(docs []document.Document) [][]document.Document {
	var groups [][]document.Document
	processed := make(map[string]struct{})

	// URL phase.
	var bucketOrder []string
	buckets := make(map[string][]document.Document)
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		url := doc.BestURL()
		if url == "" {
			continue
		}
		normalized := NormalizeURL(url)
		if normalized == "" {
			continue
		}
		if _, seen := buckets[normalized]; !seen {
			bucketOrder = append(bucketOrder, normalized)
		}
		buckets[normalized] = append(buckets[normalized], doc)
	}
	for _, key := range bucketOrder {
		bucket := buckets[key]
		if len(bucket) < 2 || anyProcessed(bucket, processed) {
			continue
		}
		groups = append(groups, bucket)
		markProcessed(bucket, processed)
	}

	// Title phase over whatever the URL phase did not claim. A document
	// joins a cluster on direct similarity to the seed, so membership is
	// first-seen-wins rather than full transitive closure.
	remaining := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if _, done := processed[doc.ID]; done {
			continue
		}
		remaining = append(remaining, doc)
	}
	for i, seed := range remaining {
		if _, done := processed[seed.ID]; done {
			continue
		}

		cluster := []document.Document{seed}
		for _, other := range remaining[i+1:] {
			if _, done := processed[other.ID]; done {
				continue
			}
			if TitleSimilarity(seed.Title, other.Title) >= titleSimilarityThreshold {
				cluster = append(cluster, other)
			}
		}
		if len(cluster) < 2 {
			continue
		}
		groups = append(groups, cluster)
		markProcessed(cluster, processed)
	}

	return groups
}

func anyProcessed(docs []document.Document, processed map[string]struct{}) bool {
	for _, doc := range docs {
		if _, done := processed[doc.ID]; done {
			return true
		}
	}
	return false
}

func markProcessed(docs []document.Document, processed map[string]struct{}) {
	for _, doc := range docs {
		processed[doc.ID] = struct{}{}
	}
}

// SelectBestDocument picks the highest-quality member of a group; ties keep
// input order. The rest come back in score-descending order, ready to be
// deleted.
func SelectBestDocument(docs []document.Document) (document.Document, []document.Document) {
	if len(docs) == 0 {
		return document.Document{}, nil
	}
	if len(docs) == 1 {
		return docs[0], nil
	}

	type scoredDoc struct {
		doc   document.Document
		score int
	}
	scored := make([]scoredDoc, len(docs))
	for i, doc := range docs {
		scored[i] = scoredDoc{doc: doc, score: QualityScore(doc)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	rest := make([]document.Document, 0, len(scored)-1)
	for _, s := range scored[1:] {
		rest = append(rest, s.doc)
	}
	return scored[0].doc, rest
}
