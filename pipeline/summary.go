package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aluiziolira/go-site-audit/models"
)

// Summary is the machine-readable digest written beside a report.
type Summary struct {
	ID             string               `json:"id"`
	SeedURL        string               `json:"seed_url"`
	Budget         int                  `json:"budget"`
	Status         models.RunStatus     `json:"status"`
	PagesProcessed int                  `json:"pages_processed"`
	IssueCount     int                  `json:"issue_count"`
	IssuesByKind   map[string]int       `json:"issues_by_kind"`
	Skipped        []models.SkippedPage `json:"skipped"`
	Interrupted    bool                 `json:"interrupted,omitempty"`
	StartedAt      time.Time            `json:"started_at"`
	FinishedAt     time.Time            `json:"finished_at"`
	DurationMillis int64                `json:"duration_ms"`
}

// Summarize digests a finished run.
func Summarize(run *models.AuditRun) Summary {
	byKind := make(map[string]int)
	for _, issue := range run.Issues {
		byKind[string(issue.Kind)]++
	}
	skipped := run.Skipped
	if skipped == nil {
		skipped = []models.SkippedPage{}
	}
	return Summary{
		ID:             run.ID,
		SeedURL:        run.SeedURL,
		Budget:         run.Budget,
		Status:         run.Status,
		PagesProcessed: run.PagesProcessed,
		IssueCount:     len(run.Issues),
		IssuesByKind:   byKind,
		Skipped:        skipped,
		Interrupted:    run.Interrupted,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		DurationMillis: run.Duration().Milliseconds(),
	}
}

// WriteSummary writes the run digest as indented JSON.
func WriteSummary(filename string, run *models.AuditRun) error {
	if err := ensureDir(filename); err != nil {
		return err
	}
	data, err := json.MarshalIndent(Summarize(run), "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// SummaryPath derives the summary file name from the report name.
func SummaryPath(reportFilename string) string {
	return trimReportExt(reportFilename) + ".summary.json"
}
