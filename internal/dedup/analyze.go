package dedup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/shelf/internal/document"
)

// DocumentRef is the per-document slice of an analysis report.
type DocumentRef struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	QualityScore int    `json:"quality_score"`
	Author       string `json:"author"`
	CreatedAt    string `json:"created_at"`
	Location     string `json:"location"`
}

// GroupReport is one duplicate group: the keeper plus everything slated for
// removal, the latter in descending quality order.
type GroupReport struct {
	GroupID            int           `json:"group_id"`
	DocumentsCount     int           `json:"documents_count"`
	BestDocument       DocumentRef   `json:"best_document"`
	DuplicatesToRemove []DocumentRef `json:"duplicates_to_remove"`
}

// Analysis is the result of a library-wide duplicate scan. Error is set
// instead of the counts when the input was unusable.
type Analysis struct {
	Error           string        `json:"error,omitempty"`
	TotalDocuments  int           `json:"total_documents"`
	DuplicateGroups int           `json:"duplicate_groups"`
	TotalDuplicates int           `json:"total_duplicates"`
	Groups          []GroupReport `json:"groups"`
}

// MarshalJSON collapses error results to a bare {"error": ...} object so
// consumers can always check for the error key first.
func (a Analysis) MarshalJSON() ([]byte, error) {
	if a.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{a.Error})
	}
	type alias Analysis
	return json.Marshal(alias(a))
}

// Analyze groups docs and ranks each group by quality score. It never
// mutates or contacts anything; an empty input produces an error result, not
// a Go error.
func Analyze(docs []document.Document) Analysis {
	if len(docs) == 0 {
		return Analysis{Error: "No documents found"}
	}

	groups := FindDuplicateGroups(docs)
	analysis := Analysis{
		TotalDocuments:  len(docs),
		DuplicateGroups: len(groups),
		Groups:          make([]GroupReport, 0, len(groups)),
	}

	for i, group := range groups {
		best, rest := SelectBestDocument(group)
		report := GroupReport{
			GroupID:            i + 1,
			DocumentsCount:     len(group),
			BestDocument:       newDocumentRef(best),
			DuplicatesToRemove: make([]DocumentRef, 0, len(rest)),
		}
		for _, doc := range rest {
			report.DuplicatesToRemove = append(report.DuplicatesToRemove, newDocumentRef(doc))
		}
		analysis.TotalDuplicates += len(group) - 1
		analysis.Groups = append(analysis.Groups, report)
	}
	return analysis
}

func newDocumentRef(doc document.Document) DocumentRef {
	return DocumentRef{
		ID:           doc.ID,
		Title:        doc.Title,
		URL:          doc.BestURL(),
		QualityScore: QualityScore(doc),
		Author:       doc.Author,
		CreatedAt:    doc.CreatedAt,
		Location:     doc.Location,
	}
}

// Store is the slice of the Reader client the dedup service needs.
type Store interface {
	ListAllDocuments(ctx context.Context, params document.ListParams) ([]document.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Service runs duplicate analysis and removal against the live library.
type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// AnalyzeLibrary fetches every document (optionally one location), truncates
// to limit when limit > 0, and runs the duplicate analysis.
func (s *Service) AnalyzeLibrary(ctx context.Context, location string, limit int) (Analysis, error) {
	docs, err := s.store.ListAllDocuments(ctx, document.ListParams{Location: location})
	if err != nil {
		return Analysis{}, fmt.Errorf("list documents: %w", err)
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	s.logger.Info().Int("documents", len(docs)).Msg("analyzing library for duplicates")
	analysis := Analyze(docs)
	s.logger.Info().
		Int("groups", analysis.DuplicateGroups).
		Int("duplicates", analysis.TotalDuplicates).
		Msg("duplicate analysis complete")
	return analysis, nil
}

// RemoveResult reports a remove-duplicates run. Exactly one of Error,
// Message, or Analysis is meaningful; MarshalJSON emits only the fields of
// the shape that applies.
type RemoveResult struct {
	Error           string    `json:"error,omitempty"`
	Message         string    `json:"message,omitempty"`
	Analysis        *Analysis `json:"analysis,omitempty"`
	RemovedCount    int       `json:"removed_count"`
	FailedDeletions []string  `json:"failed_deletions,omitempty"`
	DryRun          bool      `json:"dry_run"`
}

func (r RemoveResult) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	if r.Message != "" {
		return json.Marshal(struct {
			Message      string `json:"message"`
			RemovedCount int    `json:"removed_count"`
		}{r.Message, r.RemovedCount})
	}
	if r.DryRun {
		return json.Marshal(struct {
			Analysis     *Analysis `json:"analysis"`
			RemovedCount int       `json:"removed_count"`
			DryRun       bool      `json:"dry_run"`
		}{r.Analysis, r.RemovedCount, r.DryRun})
	}
	type alias RemoveResult
	return json.Marshal(alias(r))
}

// ConfirmFunc asks the operator to approve deleting totalDuplicates
// documents. Returning false cancels the run without error.
type ConfirmFunc func(totalDuplicates int) (bool, error)

// RemoveDuplicates analyzes the library and deletes everything except the
// best document of each group. The default caller stance is dryRun=true,
// which only reports what would happen. With a nil confirm the deletion
// proceeds unprompted.
func (s *Service) RemoveDuplicates(ctx context.Context, location string, limit int, dryRun bool, confirm ConfirmFunc) (RemoveResult, error) {
	analysis, err := s.AnalyzeLibrary(ctx, location, limit)
	if err != nil {
		return RemoveResult{}, err
	}
	if analysis.Error != "" {
		return RemoveResult{Error: analysis.Error}, nil
	}
	if analysis.DuplicateGroups == 0 {
		return RemoveResult{Message: "No duplicate documents found"}, nil
	}

	if dryRun {
		return RemoveResult{Analysis: &analysis, DryRun: true}, nil
	}

	if confirm != nil {
		ok, err := confirm(analysis.TotalDuplicates)
		if err != nil {
			return RemoveResult{}, err
		}
		if !ok {
			return RemoveResult{Message: "Operation cancelled"}, nil
		}
	}

	result := RemoveResult{Analysis: &analysis, FailedDeletions: make([]string, 0)}
	for _, group := range analysis.Groups {
		for _, dup := range group.DuplicatesToRemove {
			if err := s.store.DeleteDocument(ctx, dup.ID); err != nil {
				s.logger.Warn().Err(err).Str("id", dup.ID).Str("title", dup.Title).Msg("failed to delete duplicate")
				result.FailedDeletions = append(result.FailedDeletions, dup.ID)
				continue
			}
			result.RemovedCount++
			s.logger.Info().Str("id", dup.ID).Str("title", dup.Title).Msg("deleted duplicate")
		}
	}

	s.logger.Info().
		Int("removed", result.RemovedCount).
		Int("failed", len(result.FailedDeletions)).
		Msg("deduplication complete")
	return result, nil
}
