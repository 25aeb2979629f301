// Package plan turns duplicate-list CSVs into reviewable KEEP/DELETE plans
// and executes those plans against the document store with rate-limit-aware
// pacing and cooperative cancellation.
package plan

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/shelf/internal/dedup"
	"horse.fit/shelf/internal/document"
)

// PlanEntry is one document inside a plan, with the reason it was classified
// the way it was.
type PlanEntry struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	SourceURL  string `json:"source_url"`
	Author     string `json:"author"`
	Notes      string `json:"notes"`
	Tags       string `json:"tags"`
	CreatedAt  string `json:"created_at"`
	Reason     string `json:"reason"`
}

// PlanGroup holds the decision for one duplicate group: exactly one keeper,
// everything else deleted.
type PlanGroup struct {
	GroupID int         `json:"group_id"`
	Keep    PlanEntry   `json:"keep"`
	Delete  []PlanEntry `json:"delete"`
}

// Plan is a deterministic deletion plan derived from a duplicate-list CSV.
// Error is set instead of the groups when the input was unusable.
type Plan struct {
	Error         string      `json:"error,omitempty"`
	SourceCSV     string      `json:"source_csv"`
	PreferNewer   bool        `json:"prefer_newer"`
	TotalGroups   int         `json:"total_groups"`
	TotalToDelete int         `json:"total_to_delete"`
	Groups        []PlanGroup `json:"groups"`
}

// MarshalJSON collapses error results to a bare {"error": ...} object,
// matching the analysis result types.
func (p Plan) MarshalJSON() ([]byte, error) {
	if p.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{p.Error})
	}
	type alias Plan
	return json.Marshal(alias(p))
}

// BuildPlan reads a duplicate-list CSV (as written by the dedup exporter,
// rows tagged with group_id) and picks one keeper per group via the field
// heuristics. Groups with fewer than two rows are skipped. The plan content
// depends only on the input, never on the wall clock.
func BuildPlan(path string, preferNewer bool, logger zerolog.Logger) Plan {
	rows, err := dedup.ReadCSVRows(path)
	if err != nil {
		return Plan{
			Error:       fmt.Sprintf("Failed to read CSV file: %v", err),
			SourceCSV:   path,
			PreferNewer: preferNewer,
		}
	}
	if len(rows) == 0 {
		return Plan{Error: "No documents found in CSV", SourceCSV: path, PreferNewer: preferNewer}
	}

	var order []string
	grouped := make(map[string][]dedup.CSVRowRef)
	for _, row := range rows {
		gid := strings.TrimSpace(row.Data["group_id"])
		if gid == "" {
			continue
		}
		if _, seen := grouped[gid]; !seen {
			order = append(order, gid)
		}
		grouped[gid] = append(grouped[gid], row)
	}

	plan := Plan{SourceCSV: path, PreferNewer: preferNewer, Groups: make([]PlanGroup, 0, len(order))}
	for _, gid := range order {
		members := grouped[gid]
		if len(members) < 2 {
			continue
		}

		groupID, err := strconv.Atoi(gid)
		if err != nil {
			groupID = len(plan.Groups) + 1
		}

		keeperIdx, reason := selectKeeper(members, preferNewer)
		group := PlanGroup{
			GroupID: groupID,
			Keep:    newPlanEntry(members[keeperIdx], reason),
			Delete:  make([]PlanEntry, 0, len(members)-1),
		}
		for i, member := range members {
			if i == keeperIdx {
				continue
			}
			group.Delete = append(group.Delete, newPlanEntry(member, "Duplicate document"))
		}

		logger.Debug().
			Int("group", groupID).
			Str("keep", group.Keep.DocumentID).
			Str("reason", reason).
			Int("delete", len(group.Delete)).
			Msg("planned group")

		plan.TotalToDelete += len(group.Delete)
		plan.Groups = append(plan.Groups, group)
	}
	plan.TotalGroups = len(plan.Groups)

	logger.Info().
		Int("groups", plan.TotalGroups).
		Int("to_delete", plan.TotalToDelete).
		Msg("deletion plan built")
	return plan
}

// selectKeeper runs the field-heuristic cascade over one group and returns
// the keeper's index plus the reason the rule fired. Rules, in order: a
// some-but-not-all notes restriction, the same for tags, oldest (or newest)
// parseable created_at, and finally input order.
func selectKeeper(rows []dedup.CSVRowRef, preferNewer bool) (int, string) {
	candidates := make([]int, len(rows))
	for i := range rows {
		candidates[i] = i
	}

	notesRestricted := false
	if subset := withField(rows, candidates, "notes"); len(subset) > 0 && len(subset) < len(candidates) {
		candidates = subset
		notesRestricted = true
		if len(candidates) == 1 {
			return candidates[0], "Has notes"
		}
	}

	if subset := withField(rows, candidates, "tags"); len(subset) > 0 && len(subset) < len(candidates) {
		candidates = subset
		if len(candidates) == 1 {
			if notesRestricted {
				return candidates[0], "Has tags (preferred among notes)"
			}
			return candidates[0], "Has tags"
		}
	}

	type datedCandidate struct {
		idx int
		at  time.Time
	}
	var dated []datedCandidate
	for _, idx := range candidates {
		if at, ok := document.ParseTime(rows[idx].Data["created_at"]); ok {
			dated = append(dated, datedCandidate{idx: idx, at: at})
		}
	}
	if len(dated) > 0 {
		sort.SliceStable(dated, func(i, j int) bool {
			if preferNewer {
				return dated[i].at.After(dated[j].at)
			}
			return dated[i].at.Before(dated[j].at)
		})
		if preferNewer {
			return dated[0].idx, "Newest creation date"
		}
		return dated[0].idx, "Oldest creation date"
	}

	return candidates[0], "First in input order"
}

// withField filters candidates down to rows whose named column is non-blank.
func withField(rows []dedup.CSVRowRef, candidates []int, field string) []int {
	var kept []int
	for _, idx := range candidates {
		if strings.TrimSpace(rows[idx].Data[field]) != "" {
			kept = append(kept, idx)
		}
	}
	return kept
}

func newPlanEntry(row dedup.CSVRowRef, reason string) PlanEntry {
	return PlanEntry{
		DocumentID: row.Data["id"],
		Title:      row.Data["title"],
		SourceURL:  row.Data["source_url"],
		Author:     row.Data["author"],
		Notes:      row.Data["notes"],
		Tags:       row.Data["tags"],
		CreatedAt:  row.Data["created_at"],
		Reason:     reason,
	}
}
