package dedup

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReadCSVRows(t *testing.T) {
	t.Parallel()

	path := writeTempCSV(t, "\ufeffid,title,source_url\n"+
		"d1,First,https://example.com/a\n"+
		"d2,Short\n"+
		"d3,Third,https://example.com/c\n")

	rows, err := ReadCSVRows(path)
	if err != nil {
		t.Fatalf("ReadCSVRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].RowNumber != 2 || rows[2].RowNumber != 4 {
		t.Fatalf("row numbers = %d, %d", rows[0].RowNumber, rows[2].RowNumber)
	}
	if rows[0].Data["id"] != "d1" {
		t.Fatalf("BOM not stripped from header: %+v", rows[0].Data)
	}
	if _, ok := rows[1].Data["source_url"]; ok {
		t.Fatalf("short row grew a source_url key: %+v", rows[1].Data)
	}
	if rows[1].Data["title"] != "Short" {
		t.Fatalf("short row data = %+v", rows[1].Data)
	}
}

func TestAnalyzeCSVStandard(t *testing.T) {
	t.Parallel()

	path := writeTempCSV(t, "id,title,source_url\n"+
		"d1,Copy One,https://Example.com/Article/\n"+
		"d2,Copy Two,http://example.com/article\n"+
		"d3,Loner,https://elsewhere.com/post\n"+
		"d4,No URL,\n")

	analysis := AnalyzeCSV(path, false, zerolog.Nop())
	if analysis.Error != "" {
		t.Fatalf("unexpected error: %q", analysis.Error)
	}
	if analysis.Mode != ModeStandard || analysis.Warning != "" {
		t.Fatalf("mode = %q, warning = %q", analysis.Mode, analysis.Warning)
	}
	if analysis.TotalDocuments != 4 || analysis.DuplicateGroups != 1 || analysis.TotalDuplicates != 1 {
		t.Fatalf("counts = %d/%d/%d", analysis.TotalDocuments, analysis.DuplicateGroups, analysis.TotalDuplicates)
	}

	group := analysis.Groups[0]
	if group.GroupID != 1 || group.NormalizedURL != "example.com/article" || group.Count != 2 {
		t.Fatalf("group = %+v", group)
	}
	if group.Documents[0].Data["id"] != "d1" || group.Documents[1].Data["id"] != "d2" {
		t.Fatalf("members = %+v", group.Documents)
	}
	if group.MatchReason != "" {
		t.Fatalf("standard mode set a match reason: %q", group.MatchReason)
	}
}

func TestAnalyzeCSVStandardKeepsQueryApart(t *testing.T) {
	t.Parallel()

	// Simple normalization keeps the query string, so a tracking variant
	// does not collapse onto the clean URL in standard mode.
	path := writeTempCSV(t, "id,title,source_url\n"+
		"d1,Interesting Article,https://ex.com/a?utm_source=x\n"+
		"d2,Interesting Article,http://ex.com/a\n")

	analysis := AnalyzeCSV(path, false, zerolog.Nop())
	if analysis.DuplicateGroups != 0 {
		t.Fatalf("groups = %+v", analysis.Groups)
	}
}

func TestAnalyzeCSVAdvanced(t *testing.T) {
	t.Parallel()

	path := writeTempCSV(t, "id,title,source_url\n"+
		"d1,Interesting Article,https://ex.com/a?utm_source=x\n"+
		"d2,Interesting Article,http://ex.com/a\n"+
		"d3,Entirely Unrelated Reading,https://other.com/b\n")

	analysis := AnalyzeCSV(path, true, zerolog.Nop())
	if analysis.Error != "" {
		t.Fatalf("unexpected error: %q", analysis.Error)
	}
	if analysis.Mode != ModeAdvanced {
		t.Fatalf("mode = %q", analysis.Mode)
	}
	if analysis.Warning == "" || !strings.Contains(analysis.Warning, "false positives") {
		t.Fatalf("warning = %q", analysis.Warning)
	}
	if analysis.DuplicateGroups != 1 || analysis.TotalDuplicates != 1 {
		t.Fatalf("counts = %d/%d", analysis.DuplicateGroups, analysis.TotalDuplicates)
	}

	group := analysis.Groups[0]
	if group.NormalizedURL != "ex.com/a" {
		t.Fatalf("normalized = %q", group.NormalizedURL)
	}
	if group.MatchReason != "Same URL + title similarity: 100%" {
		t.Fatalf("reason = %q", group.MatchReason)
	}
	wantURLs := []string{"https://ex.com/a?utm_source=x", "http://ex.com/a"}
	if !reflect.DeepEqual(group.ExampleURLs, wantURLs) {
		t.Fatalf("example urls = %v", group.ExampleURLs)
	}
	wantTitles := []string{"Interesting Article", "Interesting Article"}
	if !reflect.DeepEqual(group.ExampleTitles, wantTitles) {
		t.Fatalf("example titles = %v", group.ExampleTitles)
	}
}

func TestAnalyzeCSVAdvancedTitleOnlyReason(t *testing.T) {
	t.Parallel()

	path := writeTempCSV(t, "id,title,source_url\n"+
		"d1,Go Concurrency Patterns Explained,https://siteone.com/post-1\n"+
		"d2,Go Concurrency Patterns Explained,https://sitetwo.com/post-2\n")

	analysis := AnalyzeCSV(path, true, zerolog.Nop())
	if analysis.DuplicateGroups != 1 {
		t.Fatalf("groups = %+v", analysis.Groups)
	}
	group := analysis.Groups[0]
	if group.MatchReason != "Title similarity: 100%" {
		t.Fatalf("reason = %q", group.MatchReason)
	}
	if group.NormalizedURL != "siteone.com/post-1" {
		t.Fatalf("normalized = %q (want the seed's url)", group.NormalizedURL)
	}
}

func TestAnalyzeCSVAdvancedClaimsRowsOnce(t *testing.T) {
	t.Parallel()

	// d3 clears the threshold against both, but d1 and d2 pair up first;
	// a single leftover row never forms a group.
	path := writeTempCSV(t, "id,title,source_url\n"+
		"d1,"+strings.Repeat("a", 20)+",https://u1.com/x\n"+
		"d2,"+strings.Repeat("a", 16)+strings.Repeat("b", 4)+",https://u2.com/y\n"+
		"d3,"+strings.Repeat("a", 12)+strings.Repeat("b", 8)+",https://u3.com/z\n")

	analysis := AnalyzeCSV(path, true, zerolog.Nop())
	if analysis.DuplicateGroups != 1 {
		t.Fatalf("groups = %+v", analysis.Groups)
	}
	if analysis.Groups[0].Count != 3 {
		// 0.6 and 0.8 both clear the 0.5 threshold, so the seed claims all
		// three rows in one pass.
		t.Fatalf("count = %d, want 3", analysis.Groups[0].Count)
	}
}

func TestAnalyzeCSVMissingFile(t *testing.T) {
	t.Parallel()

	analysis := AnalyzeCSV(filepath.Join(t.TempDir(), "absent.csv"), false, zerolog.Nop())
	if !strings.HasPrefix(analysis.Error, "Failed to read CSV file: ") {
		t.Fatalf("Error = %q", analysis.Error)
	}

	raw, err := json.Marshal(analysis)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var shape map[string]string
	if err := json.Unmarshal(raw, &shape); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(shape) != 1 || shape["error"] == "" {
		t.Fatalf("error result marshaled as %s", raw)
	}
}

func TestAnalyzeCSVEmptyFile(t *testing.T) {
	t.Parallel()

	for name, content := range map[string]string{
		"header only": "id,title,source_url\n",
		"zero bytes":  "",
	} {
		analysis := AnalyzeCSV(writeTempCSV(t, content), false, zerolog.Nop())
		if analysis.Error != "No documents found in CSV" {
			t.Fatalf("%s: Error = %q", name, analysis.Error)
		}
	}
}

func TestExportCSVAnalysisStandard(t *testing.T) {
	t.Parallel()

	source := writeTempCSV(t, "id,title,source_url,author,source,notes,tags,created_at,location\n"+
		"d1,Copy One,https://example.com/a,Jane,web,note,go,2024-01-01,archive\n"+
		"d2,Copy Two,http://example.com/a,,,,,,\n")
	analysis := AnalyzeCSV(source, false, zerolog.Nop())

	out := filepath.Join(t.TempDir(), "report.csv")
	written, err := ExportCSVAnalysis(analysis, out)
	if err != nil {
		t.Fatalf("ExportCSVAnalysis: %v", err)
	}
	if written != out {
		t.Fatalf("written = %q", written)
	}

	records := readBackCSV(t, out)
	if !reflect.DeepEqual(records[0], duplicateListColumns) {
		t.Fatalf("header = %v", records[0])
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}
	first := records[1]
	if first[0] != "1" || first[1] != "example.com/a" || first[2] != "2" || first[3] != "d1" || first[4] != "Copy One" {
		t.Fatalf("first row = %v", first)
	}
	if first[6] != "Jane" || first[11] != "archive" {
		t.Fatalf("first row = %v", first)
	}
}

func TestExportCSVAnalysisAdvanced(t *testing.T) {
	t.Parallel()

	source := writeTempCSV(t, "id,title,source_url\n"+
		"d1,Interesting Article,https://ex.com/a?utm_source=x\n"+
		"d2,Interesting Article,http://ex.com/a\n")
	analysis := AnalyzeCSV(source, true, zerolog.Nop())

	out := filepath.Join(t.TempDir(), "report.csv")
	if _, err := ExportCSVAnalysis(analysis, out); err != nil {
		t.Fatalf("ExportCSVAnalysis: %v", err)
	}

	records := readBackCSV(t, out)
	wantHeader := []string{
		"group_id", "normalized_url", "match_reason", "example_urls", "example_titles",
		"row_number", "id", "title", "source_url",
		"author", "source", "notes", "tags", "created_at", "location",
	}
	if !reflect.DeepEqual(records[0], wantHeader) {
		t.Fatalf("header = %v", records[0])
	}
	first := records[1]
	if first[2] != "Same URL + title similarity: 100%" {
		t.Fatalf("match_reason = %q", first[2])
	}
	if first[3] != "https://ex.com/a?utm_source=x; http://ex.com/a" {
		t.Fatalf("example_urls = %q", first[3])
	}
	if first[4] != "Interesting Article; Interesting Article" {
		t.Fatalf("example_titles = %q", first[4])
	}
}

func TestExportCSVAnalysisRejectsErrorResult(t *testing.T) {
	t.Parallel()

	_, err := ExportCSVAnalysis(CSVAnalysis{Error: "No documents found in CSV"}, filepath.Join(t.TempDir(), "x.csv"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExportAnalysis(t *testing.T) {
	t.Parallel()

	analysis := Analyze(libraryFixture())
	out := filepath.Join(t.TempDir(), "analysis.json")
	written, err := ExportAnalysis(analysis, out)
	if err != nil {
		t.Fatalf("ExportAnalysis: %v", err)
	}
	if written != out {
		t.Fatalf("written = %q", written)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var decoded struct {
		TotalDocuments  int `json:"total_documents"`
		DuplicateGroups int `json:"duplicate_groups"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.TotalDocuments != 6 || decoded.DuplicateGroups != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func readBackCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}
