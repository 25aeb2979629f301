package plan

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"horse.fit/shelf/internal/dedup"
	"horse.fit/shelf/internal/globaltime"
)

const (
	ActionKeep   = "KEEP"
	ActionDelete = "DELETE"
)

// planColumns is the deletion-plan CSV schema. The executor re-reads this
// exact shape, and rewritten plans reuse it unchanged.
var planColumns = []string{
	"group_id", "action", "document_id", "title", "source_url",
	"author", "notes", "tags", "created_at", "reason",
}

// PlanRow is one row of a deletion-plan CSV as stored on disk.
type PlanRow struct {
	GroupID    string
	Action     string
	DocumentID string
	Title      string
	SourceURL  string
	Author     string
	Notes      string
	Tags       string
	CreatedAt  string
	Reason     string
}

func (r PlanRow) record() []string {
	return []string{
		r.GroupID, r.Action, r.DocumentID, r.Title, r.SourceURL,
		r.Author, r.Notes, r.Tags, r.CreatedAt, r.Reason,
	}
}

// WritePlanCSV persists a plan for review. An empty filename picks
// deletion_plan_<timestamp>.csv in the working directory. Each group writes
// its KEEP row first, then the DELETE rows.
func WritePlanCSV(plan Plan, filename string) (string, error) {
	if plan.Error != "" {
		return "", fmt.Errorf("cannot export an error result: %s", plan.Error)
	}
	if filename == "" {
		filename = fmt.Sprintf("deletion_plan_%s.csv", globaltime.Stamp())
	}

	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("create plan csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(planColumns); err != nil {
		f.Close()
		return "", fmt.Errorf("write plan header: %w", err)
	}
	for _, group := range plan.Groups {
		gid := strconv.Itoa(group.GroupID)
		if err := w.Write(entryRow(gid, ActionKeep, group.Keep).record()); err != nil {
			f.Close()
			return "", fmt.Errorf("write plan row: %w", err)
		}
		for _, entry := range group.Delete {
			if err := w.Write(entryRow(gid, ActionDelete, entry).record()); err != nil {
				f.Close()
				return "", fmt.Errorf("write plan row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush plan csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close plan csv: %w", err)
	}
	return filename, nil
}

// ReadPlanCSV loads a deletion-plan CSV back into rows, tolerating extra or
// missing columns the same way the dedup CSV reader does.
func ReadPlanCSV(path string) ([]PlanRow, error) {
	raw, err := dedup.ReadCSVRows(path)
	if err != nil {
		return nil, err
	}

	rows := make([]PlanRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, PlanRow{
			GroupID:    r.Data["group_id"],
			Action:     strings.ToUpper(strings.TrimSpace(r.Data["action"])),
			DocumentID: r.Data["document_id"],
			Title:      r.Data["title"],
			SourceURL:  r.Data["source_url"],
			Author:     r.Data["author"],
			Notes:      r.Data["notes"],
			Tags:       r.Data["tags"],
			CreatedAt:  r.Data["created_at"],
			Reason:     r.Data["reason"],
		})
	}
	return rows, nil
}

// writeUpdatedPlan writes the resumable remainder of a plan: every row except
// the DELETE rows already processed, in original order, to a new timestamped
// file next to the original. The original file is left untouched.
func writeUpdatedPlan(originalPath string, rows []PlanRow, processed map[int]bool) (string, error) {
	stem := strings.TrimSuffix(originalPath, filepath.Ext(originalPath))
	updated := fmt.Sprintf("%s_updated_%s.csv", stem, globaltime.Stamp())

	f, err := os.Create(updated)
	if err != nil {
		return "", fmt.Errorf("create updated plan: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(planColumns); err != nil {
		f.Close()
		return "", fmt.Errorf("write updated plan header: %w", err)
	}
	for i, row := range rows {
		if row.Action == ActionDelete && processed[i] {
			continue
		}
		if err := w.Write(row.record()); err != nil {
			f.Close()
			return "", fmt.Errorf("write updated plan row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush updated plan: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close updated plan: %w", err)
	}
	return updated, nil
}

func entryRow(groupID, action string, entry PlanEntry) PlanRow {
	return PlanRow{
		GroupID:    groupID,
		Action:     action,
		DocumentID: entry.DocumentID,
		Title:      entry.Title,
		SourceURL:  entry.SourceURL,
		Author:     entry.Author,
		Notes:      entry.Notes,
		Tags:       entry.Tags,
		CreatedAt:  entry.CreatedAt,
		Reason:     entry.Reason,
	}
}
