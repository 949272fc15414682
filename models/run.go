package models

import "time"

// RunState is the terminal state of an audit run.
type RunState string

const (
	StateCompleted          RunState = "completed"
	StateCompletedWithSkips RunState = "completed_with_skips"
	StateFailed             RunState = "failed"
)

// RunStatus carries the terminal state plus its payload: the skip count for
// StateCompletedWithSkips, the reason for StateFailed.
type RunStatus struct {
	State   RunState `json:"state"`
	Skipped int      `json:"skipped,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// SkipStage names the step at which a page was given up on.
type SkipStage string

const (
	SkipFetch  SkipStage = "fetch"
	SkipReview SkipStage = "review"
)

// SkippedPage records a page that contributed no issues.
type SkippedPage struct {
	URL    string    `json:"url"`
	Stage  SkipStage `json:"stage"`
	Reason string    `json:"reason"`
}

// AuditRun is the result of one audit. It is owned by the caller and never
// shared between runs.
type AuditRun struct {
	ID             string        `json:"id"`
	SeedURL        string        `json:"seed_url"`
	Budget         int           `json:"budget"`
	Issues         []Issue       `json:"issues"`
	Status         RunStatus     `json:"status"`
	PagesProcessed int           `json:"pages_processed"`
	Skipped        []SkippedPage `json:"skipped"`
	Interrupted    bool          `json:"interrupted,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
}

// Duration returns how long the run took.
func (r *AuditRun) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
