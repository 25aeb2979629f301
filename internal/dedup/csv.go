package dedup

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// csvTitleSimilarityThreshold is deliberately looser than the live-library
// threshold: CSV analysis is a recall-oriented review tool, not an automatic
// deleter.
const csvTitleSimilarityThreshold = 0.5

const (
	ModeStandard = "standard"
	ModeAdvanced = "advanced"
)

const advancedWarning = "Advanced matching is heuristic and may include false positives - review groups carefully before deleting"

// CSVRowRef is one data row of an exported CSV: its row number (the header
// is row 1, the first data row 2) and the raw column values.
type CSVRowRef struct {
	RowNumber int               `json:"row_number"`
	Data      map[string]string `json:"data"`
}

// CSVGroup is one duplicate group found in a CSV export. MatchReason and the
// example fields are filled by advanced mode only.
type CSVGroup struct {
	GroupID       int         `json:"group_id"`
	NormalizedURL string      `json:"normalized_url"`
	Count         int         `json:"count"`
	Documents     []CSVRowRef `json:"documents"`
	MatchReason   string      `json:"match_reason,omitempty"`
	ExampleURLs   []string    `json:"example_urls,omitempty"`
	ExampleTitles []string    `json:"example_titles,omitempty"`
}

// CSVAnalysis is the result of scanning an exported CSV for duplicates.
// Error is set instead of the counts when the file was missing, unreadable,
// or empty.
type CSVAnalysis struct {
	Error           string     `json:"error,omitempty"`
	CSVFile         string     `json:"csv_file"`
	Mode            string     `json:"mode"`
	TotalDocuments  int        `json:"total_documents"`
	DuplicateGroups int        `json:"duplicate_groups"`
	TotalDuplicates int        `json:"total_duplicates"`
	Groups          []CSVGroup `json:"groups"`
	Warning         string     `json:"warning,omitempty"`
}

// MarshalJSON collapses error results to a bare {"error": ...} object,
// matching Analysis.
func (a CSVAnalysis) MarshalJSON() ([]byte, error) {
	if a.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{a.Error})
	}
	type alias CSVAnalysis
	return json.Marshal(alias(a))
}

// AnalyzeCSV scans an exported CSV for duplicate documents. Standard mode
// buckets rows by simple-normalized source_url; advanced mode additionally
// clusters rows whose titles score above the (looser) CSV threshold and
// tags every group with the rule that matched first. File and parse
// problems come back as an error result, never a panic.
func AnalyzeCSV(path string, advanced bool, logger zerolog.Logger) CSVAnalysis {
	mode := ModeStandard
	if advanced {
		mode = ModeAdvanced
	}

	rows, err := ReadCSVRows(path)
	if err != nil {
		return CSVAnalysis{
			Error:   fmt.Sprintf("Failed to read CSV file: %v", err),
			CSVFile: path,
			Mode:    mode,
		}
	}
	if len(rows) == 0 {
		return CSVAnalysis{Error: "No documents found in CSV", CSVFile: path, Mode: mode}
	}

	analysis := CSVAnalysis{
		CSVFile:        path,
		Mode:           mode,
		TotalDocuments: len(rows),
	}
	if advanced {
		analysis.Groups = findCSVGroupsAdvanced(rows, logger)
		analysis.Warning = advancedWarning
	} else {
		analysis.Groups = findCSVGroupsStandard(rows)
	}
	analysis.DuplicateGroups = len(analysis.Groups)
	for _, group := range analysis.Groups {
		analysis.TotalDuplicates += group.Count - 1
	}
	return analysis
}

// ReadCSVRows loads a headered CSV into row maps. Row numbers follow
// spreadsheet convention (header = 1). Short rows are tolerated; their
// missing cells simply have no key.
func ReadCSVRows(path string) ([]CSVRowRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []CSVRowRef
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		data := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				data[name] = record[i]
			}
		}
		rows = append(rows, CSVRowRef{RowNumber: len(rows) + 2, Data: data})
	}
	return rows, nil
}

func findCSVGroupsStandard(rows []CSVRowRef) []CSVGroup {
	var order []string
	buckets := make(map[string][]CSVRowRef)
	for _, row := range rows {
		normalized := NormalizeURLSimple(row.Data["source_url"])
		if normalized == "" {
			continue
		}
		if _, seen := buckets[normalized]; !seen {
			order = append(order, normalized)
		}
		buckets[normalized] = append(buckets[normalized], row)
	}

	groups := make([]CSVGroup, 0)
	for _, key := range order {
		bucket := buckets[key]
		if len(bucket) < 2 {
			continue
		}
		groups = append(groups, CSVGroup{
			GroupID:       len(groups) + 1,
			NormalizedURL: key,
			Count:         len(bucket),
			Documents:     bucket,
		})
	}
	return groups
}

func findCSVGroupsAdvanced(rows []CSVRowRef, logger zerolog.Logger) []CSVGroup {
	logger.Info().Int("documents", len(rows)).Msg("scanning csv rows for duplicates")

	used := make(map[int]struct{})
	groups := make([]CSVGroup, 0)

	for i, seed := range rows {
		if _, done := used[i]; done {
			continue
		}
		if i%100 == 0 {
			logger.Info().Int("processed", i).Int("total", len(rows)).Msg("advanced scan progress")
		}

		seedURL := NormalizeURLAdvanced(seed.Data["source_url"])
		cluster := []CSVRowRef{seed}
		memberIdx := []int{i}
		matchReason := ""

		for j := i + 1; j < len(rows); j++ {
			if _, done := used[j]; done {
				continue
			}
			other := rows[j]

			similarity := TitleSimilarity(seed.Data["title"], other.Data["title"])
			if similarity <= csvTitleSimilarityThreshold {
				continue
			}

			cluster = append(cluster, other)
			memberIdx = append(memberIdx, j)
			if matchReason == "" {
				if seedURL != "" && seedURL == NormalizeURLAdvanced(other.Data["source_url"]) {
					matchReason = fmt.Sprintf("Same URL + title similarity: %.0f%%", similarity*100)
				} else {
					matchReason = fmt.Sprintf("Title similarity: %.0f%%", similarity*100)
				}
			}
		}

		if len(cluster) < 2 {
			continue
		}
		for _, idx := range memberIdx {
			used[idx] = struct{}{}
		}

		groups = append(groups, CSVGroup{
			GroupID:       len(groups) + 1,
			NormalizedURL: seedURL,
			Count:         len(cluster),
			Documents:     cluster,
			MatchReason:   matchReason,
			ExampleURLs:   exampleValues(cluster, "source_url"),
			ExampleTitles: exampleValues(cluster, "title"),
		})
	}

	logger.Info().Int("groups", len(groups)).Msg("advanced scan complete")
	return groups
}

func exampleValues(rows []CSVRowRef, key string) []string {
	values := make([]string, 0, 3)
	for _, row := range rows {
		if len(values) == 3 {
			break
		}
		if v := strings.TrimSpace(row.Data[key]); v != "" {
			values = append(values, v)
		}
	}
	return values
}
