package plan

import (
	"encoding/json"
	"fmt"
	"os"

	"horse.fit/shelf/internal/globaltime"
)

const (
	StatusCompleted   = "COMPLETED"
	StatusInterrupted = "INTERRUPTED"
)

// ExecutionReport is the terminal record of one live execution run, written
// whether the run completed or was interrupted.
type ExecutionReport struct {
	TotalCandidates     int      `json:"total_candidates"`
	SuccessfulDeletions int      `json:"successful_deletions"`
	FailedDeletions     int      `json:"failed_deletions"`
	Errors              []string `json:"errors"`
	CompletionStatus    string   `json:"completion_status"`
	UpdatedPlanFile     string   `json:"updated_plan_file,omitempty"`
}

// WriteReport persists a report as pretty JSON. An empty filename picks
// execution_report_<timestamp>.json in the working directory.
func WriteReport(report ExecutionReport, filename string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("execution_report_%s.json", globaltime.Stamp())
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode execution report: %w", err)
	}
	if err := os.WriteFile(filename, payload, 0o644); err != nil {
		return "", fmt.Errorf("write execution report: %w", err)
	}
	return filename, nil
}
