package db

import (
	"context"
	"fmt"
)

// Dedup run kinds recorded in shelf.dedup_runs.
const (
	RunKindAnalyze = "analyze"
	RunKindRemove  = "remove"
	RunKindExecute = "execute"
	RunKindSync    = "sync"
)

// InsertDedupRun records one run and returns its id. CreatedAt is assigned
// by the database.
func (p *Pool) InsertDedupRun(ctx context.Context, run DedupRun) (int64, error) {
	const q = `
INSERT INTO shelf.dedup_runs (
	kind, location, total_documents, duplicate_groups, total_duplicates,
	removed_count, failed_count, status, report_file
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING run_id
`
	var runID int64
	if err := p.QueryRow(ctx, q,
		run.Kind,
		run.Location,
		run.TotalDocuments,
		run.DuplicateGroups,
		run.TotalDuplicates,
		run.RemovedCount,
		run.FailedCount,
		run.Status,
		run.ReportFile,
	).Scan(&runID); err != nil {
		return 0, fmt.Errorf("insert dedup run: %w", err)
	}
	return runID, nil
}

// ListDedupRuns returns the most recent runs, newest first.
func (p *Pool) ListDedupRuns(ctx context.Context, limit int) ([]DedupRun, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `
SELECT
	run_id, kind, location, total_documents, duplicate_groups,
	total_duplicates, removed_count, failed_count, status, report_file,
	created_at
FROM shelf.dedup_runs
ORDER BY created_at DESC, run_id DESC
LIMIT $1
`
	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query dedup runs: %w", err)
	}
	defer rows.Close()

	runs := make([]DedupRun, 0, limit)
	for rows.Next() {
		var run DedupRun
		if err := rows.Scan(
			&run.RunID,
			&run.Kind,
			&run.Location,
			&run.TotalDocuments,
			&run.DuplicateGroups,
			&run.TotalDuplicates,
			&run.RemovedCount,
			&run.FailedCount,
			&run.Status,
			&run.ReportFile,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan dedup run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dedup run rows: %w", err)
	}
	return runs, nil
}
