package dedup

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"horse.fit/shelf/internal/globaltime"
)

// duplicateListColumns is the flat-CSV schema consumed by the deletion
// planner. Advanced-mode exports insert the match columns right after
// normalized_url.
var duplicateListColumns = []string{
	"group_id", "normalized_url", "row_number", "id", "title", "source_url",
	"author", "source", "notes", "tags", "created_at", "location",
}

var advancedMatchColumns = []string{"match_reason", "example_urls", "example_titles"}

// ExportAnalysis writes an analysis result as pretty JSON. An empty filename
// picks duplicate_analysis_<timestamp>.json in the working directory.
func ExportAnalysis(result any, filename string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("duplicate_analysis_%s.json", globaltime.Stamp())
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode analysis: %w", err)
	}
	if err := os.WriteFile(filename, payload, 0o644); err != nil {
		return "", fmt.Errorf("write analysis report: %w", err)
	}
	return filename, nil
}

// ExportCSVAnalysis flattens the duplicate groups to one CSV row per member
// document, in the schema the deletion planner consumes. An empty filename
// picks duplicate_analysis_<timestamp>.csv.
func ExportCSVAnalysis(analysis CSVAnalysis, filename string) (string, error) {
	if analysis.Error != "" {
		return "", fmt.Errorf("cannot export an error result: %s", analysis.Error)
	}
	if filename == "" {
		filename = fmt.Sprintf("duplicate_analysis_%s.csv", globaltime.Stamp())
	}

	columns := duplicateListColumns
	if analysis.Mode == ModeAdvanced {
		columns = make([]string, 0, len(duplicateListColumns)+len(advancedMatchColumns))
		columns = append(columns, duplicateListColumns[:2]...)
		columns = append(columns, advancedMatchColumns...)
		columns = append(columns, duplicateListColumns[2:]...)
	}

	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		f.Close()
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, group := range analysis.Groups {
		for _, row := range group.Documents {
			record := make([]string, 0, len(columns))
			for _, col := range columns {
				switch col {
				case "group_id":
					record = append(record, strconv.Itoa(group.GroupID))
				case "normalized_url":
					record = append(record, group.NormalizedURL)
				case "match_reason":
					record = append(record, group.MatchReason)
				case "example_urls":
					record = append(record, strings.Join(group.ExampleURLs, "; "))
				case "example_titles":
					record = append(record, strings.Join(group.ExampleTitles, "; "))
				case "row_number":
					record = append(record, strconv.Itoa(row.RowNumber))
				default:
					record = append(record, row.Data[col])
				}
			}
			if err := w.Write(record); err != nil {
				f.Close()
				return "", fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close csv: %w", err)
	}
	return filename, nil
}
