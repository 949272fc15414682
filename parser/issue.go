package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-site-audit/models"
)

// ValidateIssue ensures a tagged issue carries the fields a report needs.
func ValidateIssue(issue *models.Issue) error {
	if issue == nil {
		return fmt.Errorf("issue is nil")
	}
	if strings.TrimSpace(issue.Description) == "" {
		return fmt.Errorf("issue missing description")
	}
	if strings.TrimSpace(issue.SourcePage) == "" {
		return fmt.Errorf("issue missing source page for %q", issue.Description)
	}
	return nil
}

// NormalizeText collapses runs of whitespace to single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// NormalizeKind maps the category spellings engines actually return onto
// the canonical kinds. Anything unrecognised is returned trimmed but
// otherwise verbatim.
func NormalizeKind(raw string) models.IssueKind {
	trimmed := strings.TrimSpace(raw)
	key := strings.ToLower(trimmed)
	key = strings.NewReplacer("_", " ", "-", " ", "[", "", "]", "").Replace(key)
	key = NormalizeText(key)

	switch key {
	case "spelling", "spelling error", "typo", "misspelling":
		return models.KindSpelling
	case "grammar", "grammar error", "grammatical", "punctuation":
		return models.KindGrammar
	case "logicmismatch", "logic mismatch", "logic", "link logic", "link mismatch", "link", "mismatch", "navigation":
		return models.KindLogicMismatch
	default:
		return models.IssueKind(trimmed)
	}
}
