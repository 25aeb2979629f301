package plan

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/shelf/internal/dedup"
)

func row(data map[string]string) dedup.CSVRowRef {
	return dedup.CSVRowRef{RowNumber: 2, Data: data}
}

func TestSelectKeeperCascade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		rows        []dedup.CSVRowRef
		preferNewer bool
		wantIdx     int
		wantReason  string
	}{
		{
			name: "notes beat dates",
			rows: []dedup.CSVRowRef{
				row(map[string]string{"id": "a", "notes": "x", "created_at": "2024-06-01T00:00:00Z"}),
				row(map[string]string{"id": "b", "notes": "", "created_at": "2020-01-01T00:00:00Z"}),
			},
			wantIdx:    0,
			wantReason: "Has notes",
		},
		{
			name: "all have notes, tags decide",
			rows: []dedup.CSVRowRef{
				row(map[string]string{"id": "a", "notes": "x", "tags": ""}),
				row(map[string]string{"id": "b", "notes": "y", "tags": "go"}),
			},
			wantIdx:    1,
			wantReason: "Has tags",
		},
		{
			name: "tags decide among notes subset",
			rows: []dedup.CSVRowRef{
				row(map[string]string{"id": "a", "notes": "", "tags": "go"}),
				row(map[string]string{"id": "b", "notes": "x", "tags": ""}),
				row(map[string]string{"id": "c", "notes": "y", "tags": "go"}),
			},
			wantIdx:    2,
			wantReason: "Has tags (preferred among notes)",
		},
		{
			name: "oldest creation date",
			rows: []dedup.CSVRowRef{
				row(map[string]string{"id": "a", "created_at": "2024-02-01 10:00:00"}),
				row(map[string]string{"id": "b", "created_at": "2023-11-05T08:30:00Z"}),
				row(map[string]string{"id": "c", "created_at": "not a date"}),
			},
			wantIdx:    1,
			wantReason: "Oldest creation date",
		},
		{
			name: "newest creation date",
			rows: []dedup.CSVRowRef{
				row(map[string]string{"id": "a", "created_at": "2024-02-01 10:00:00"}),
				row(map[string]string{"id": "b", "created_at": "2023-11-05T08:30:00Z"}),
			},
			preferNewer: true,
			wantIdx:     0,
			wantReason:  "Newest creation date",
		},
		{
			name: "single parseable date wins",
			rows: []dedup.CSVRowRef{
				row(map[string]string{"id": "a", "created_at": "garbage"}),
				row(map[string]string{"id": "b", "created_at": "2023-11-05T08:30:00Z"}),
			},
			wantIdx:    1,
			wantReason: "Oldest creation date",
		},
		{
			name: "fallback to input order",
			rows: []dedup.CSVRowRef{
				row(map[string]string{"id": "a"}),
				row(map[string]string{"id": "b"}),
			},
			wantIdx:    0,
			wantReason: "First in input order",
		},
		{
			name: "whitespace notes do not count",
			rows: []dedup.CSVRowRef{
				row(map[string]string{"id": "a", "notes": "   "}),
				row(map[string]string{"id": "b", "notes": "real note"}),
			},
			wantIdx:    1,
			wantReason: "Has notes",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			idx, reason := selectKeeper(tc.rows, tc.preferNewer)
			if idx != tc.wantIdx || reason != tc.wantReason {
				t.Fatalf("selectKeeper() = %d %q, want %d %q", idx, reason, tc.wantIdx, tc.wantReason)
			}
		})
	}
}

func writeDuplicateList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duplicates.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestBuildPlan(t *testing.T) {
	t.Parallel()

	path := writeDuplicateList(t, "group_id,normalized_url,row_number,id,title,source_url,author,source,notes,tags,created_at,location\n"+
		"1,example.com/a,2,d1,Copy A,https://example.com/a,Jane,web,keep me,go,2024-01-01T00:00:00Z,archive\n"+
		"1,example.com/a,3,d2,Copy B,https://example.com/a,,,,,2023-01-01T00:00:00Z,\n"+
		"1,example.com/a,4,d3,Copy C,https://example.com/a,,,,,,\n"+
		"2,example.com/b,5,d4,Other A,https://example.com/b,,,,,2024-05-01T00:00:00Z,\n"+
		"2,example.com/b,6,d5,Other B,https://example.com/b,,,,,2024-04-01T00:00:00Z,\n"+
		"3,example.com/c,7,d6,Loner,https://example.com/c,,,,,,\n")

	plan := BuildPlan(path, false, zerolog.Nop())
	if plan.Error != "" {
		t.Fatalf("unexpected error: %q", plan.Error)
	}
	if plan.TotalGroups != 2 || plan.TotalToDelete != 3 {
		t.Fatalf("totals = %d groups, %d to delete", plan.TotalGroups, plan.TotalToDelete)
	}
	if plan.SourceCSV != path || plan.PreferNewer {
		t.Fatalf("plan header = %+v", plan)
	}

	first := plan.Groups[0]
	if first.GroupID != 1 || first.Keep.DocumentID != "d1" || first.Keep.Reason != "Has notes" {
		t.Fatalf("first group = %+v", first)
	}
	if len(first.Delete) != 2 || first.Delete[0].DocumentID != "d2" || first.Delete[1].DocumentID != "d3" {
		t.Fatalf("first deletes = %+v", first.Delete)
	}
	for _, entry := range first.Delete {
		if entry.Reason != "Duplicate document" {
			t.Fatalf("delete reason = %q", entry.Reason)
		}
	}

	second := plan.Groups[1]
	if second.GroupID != 2 || second.Keep.DocumentID != "d5" || second.Keep.Reason != "Oldest creation date" {
		t.Fatalf("second group = %+v", second)
	}
}

func TestBuildPlanPreferNewer(t *testing.T) {
	t.Parallel()

	path := writeDuplicateList(t, "group_id,id,title,notes,tags,created_at\n"+
		"1,d1,A,,,2024-05-01T00:00:00Z\n"+
		"1,d2,B,,,2024-04-01T00:00:00Z\n")

	plan := BuildPlan(path, true, zerolog.Nop())
	if plan.Groups[0].Keep.DocumentID != "d1" || plan.Groups[0].Keep.Reason != "Newest creation date" {
		t.Fatalf("keep = %+v", plan.Groups[0].Keep)
	}
	if !plan.PreferNewer {
		t.Fatal("PreferNewer not recorded")
	}
}

func TestBuildPlanErrors(t *testing.T) {
	t.Parallel()

	missing := BuildPlan(filepath.Join(t.TempDir(), "absent.csv"), false, zerolog.Nop())
	if !strings.HasPrefix(missing.Error, "Failed to read CSV file: ") {
		t.Fatalf("Error = %q", missing.Error)
	}

	raw, err := json.Marshal(missing)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var shape map[string]string
	if err := json.Unmarshal(raw, &shape); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(shape) != 1 || shape["error"] == "" {
		t.Fatalf("error plan marshaled as %s", raw)
	}

	empty := BuildPlan(writeDuplicateList(t, "group_id,id,title\n"), false, zerolog.Nop())
	if empty.Error != "No documents found in CSV" {
		t.Fatalf("Error = %q", empty.Error)
	}
}

func TestWritePlanCSVRoundTrip(t *testing.T) {
	t.Parallel()

	source := writeDuplicateList(t, "group_id,id,title,source_url,author,notes,tags,created_at\n"+
		"1,d1,Keep Me,https://example.com/a,Jane,note,go,2024-01-01T00:00:00Z\n"+
		"1,d2,Drop Me,https://example.com/a,,,,\n")
	built := BuildPlan(source, false, zerolog.Nop())

	out := filepath.Join(t.TempDir(), "plan.csv")
	written, err := WritePlanCSV(built, out)
	if err != nil {
		t.Fatalf("WritePlanCSV: %v", err)
	}
	if written != out {
		t.Fatalf("written = %q", written)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	records, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if !reflect.DeepEqual(records[0], planColumns) {
		t.Fatalf("header = %v", records[0])
	}

	rows, err := ReadPlanCSV(out)
	if err != nil {
		t.Fatalf("ReadPlanCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	keep, del := rows[0], rows[1]
	if keep.Action != ActionKeep || keep.DocumentID != "d1" || keep.Reason != "Has notes" {
		t.Fatalf("keep row = %+v", keep)
	}
	if keep.GroupID != "1" || keep.Author != "Jane" || keep.Tags != "go" {
		t.Fatalf("keep row = %+v", keep)
	}
	if del.Action != ActionDelete || del.DocumentID != "d2" || del.Reason != "Duplicate document" {
		t.Fatalf("delete row = %+v", del)
	}
}

func TestWritePlanCSVRejectsErrorResult(t *testing.T) {
	t.Parallel()

	_, err := WritePlanCSV(Plan{Error: "No documents found in CSV"}, filepath.Join(t.TempDir(), "x.csv"))
	if err == nil {
		t.Fatal("expected error")
	}
}
