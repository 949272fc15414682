package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-site-audit/models"
	"github.com/aluiziolira/go-site-audit/parser"
)

// ErrMalformedResponse is returned when a reply cannot be read as an issue list.
var ErrMalformedResponse = errors.New("malformed review response")

var cleanSentinels = map[string]struct{}{
	"[]":          {},
	"no_errors":   {},
	"all_correct": {},
	"none":        {},
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")

var (
	kindFields     = []string{"type", "category", "kind"}
	descFields     = []string{"issue", "description", "problem"}
	fixFields      = []string{"fix", "suggested_fix", "suggestion", "correction"}
	locationFields = []string{"loc", "location", "context", "section"}
)

// ParseResponse reads an engine reply into issues. It never panics and
// always returns a non-nil slice; unreadable replies yield an empty list and
// ErrMalformedResponse.
func ParseResponse(raw string) ([]models.Issue, error) {
	trimmed := strings.TrimSpace(raw)
	if isClean(trimmed) {
		return []models.Issue{}, nil
	}

	if issues, ok := decodeIssues(trimmed); ok {
		return issues, nil
	}

	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		inner := strings.TrimSpace(m[1])
		if isClean(inner) {
			return []models.Issue{}, nil
		}
		if issues, ok := decodeIssues(inner); ok {
			return issues, nil
		}
		trimmed = inner
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		if issues, ok := decodeIssues(trimmed[start : end+1]); ok {
			return issues, nil
		}
	}

	return []models.Issue{}, fmt.Errorf("%w: %s", ErrMalformedResponse, preview(raw))
}

func isClean(s string) bool {
	if s == "" {
		return true
	}
	normalized := strings.ToLower(strings.Trim(s, " \t\r\n.\"'`"))
	_, ok := cleanSentinels[normalized]
	return ok
}

func decodeIssues(s string) ([]models.Issue, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}

	var records []any
	switch v := doc.(type) {
	case []any:
		records = v
	case map[string]any:
		list, ok := lookup(v, "issues").([]any)
		if !ok {
			return nil, false
		}
		records = list
	default:
		return nil, false
	}

	issues := make([]models.Issue, 0, len(records))
	for _, record := range records {
		fields, ok := record.(map[string]any)
		if !ok {
			continue
		}
		issue := models.Issue{
			Kind:         parser.NormalizeKind(firstField(fields, kindFields)),
			Description:  parser.NormalizeText(firstField(fields, descFields)),
			SuggestedFix: strings.TrimSpace(firstField(fields, fixFields)),
			Location:     strings.TrimSpace(firstField(fields, locationFields)),
		}
		if issue.Description == "" {
			continue
		}
		issues = append(issues, issue)
	}
	return issues, true
}

func firstField(fields map[string]any, names []string) string {
	for _, name := range names {
		if v := lookup(fields, name); v != nil {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// lookup matches keys case-insensitively.
func lookup(fields map[string]any, name string) any {
	if v, ok := fields[name]; ok {
		return v
	}
	for k, v := range fields {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		out, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(out)
	}
}

func preview(raw string) string {
	const limit = 120
	s := parser.NormalizeText(raw)
	if len([]rune(s)) > limit {
		return string([]rune(s)[:limit]) + "..."
	}
	return s
}
