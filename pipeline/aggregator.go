package pipeline

import (
	"sync"

	"github.com/aluiziolira/go-site-audit/models"
)

// Header is the column order of every tabular export.
var Header = []string{"category", "issue", "fix", "location", "source_page"}

// Aggregator collects the issues of one run in arrival order.
type Aggregator struct {
	mu     sync.Mutex
	issues []models.Issue
}

func NewAggregator() *Aggregator {
	return &Aggregator{issues: make([]models.Issue, 0)}
}

// Tag stamps sourcePage on each issue, appends them to the run and returns
// the stamped copies.
func (a *Aggregator) Tag(issues []models.Issue, sourcePage string) []models.Issue {
	tagged := make([]models.Issue, len(issues))
	for i, issue := range issues {
		issue.SourcePage = sourcePage
		tagged[i] = issue
	}

	a.mu.Lock()
	a.issues = append(a.issues, tagged...)
	a.mu.Unlock()

	out := make([]models.Issue, len(tagged))
	copy(out, tagged)
	return out
}

// Issues returns a copy of everything tagged so far.
func (a *Aggregator) Issues() []models.Issue {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Issue, len(a.issues))
	copy(out, a.issues)
	return out
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.issues)
}

// ToTable renders issues as rows, header first.
func ToTable(issues []models.Issue) [][]string {
	rows := make([][]string, 0, len(issues)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, issue := range issues {
		rows = append(rows, Record(issue))
	}
	return rows
}

// Record renders one issue in Header order.
func Record(issue models.Issue) []string {
	return []string{
		string(issue.Kind),
		issue.Description,
		issue.SuggestedFix,
		issue.Location,
		issue.SourcePage,
	}
}
