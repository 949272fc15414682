package review

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aluiziolira/go-site-audit/models"
)

func TestParseResponseCleanReplies(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace", raw: "  \n\t "},
		{name: "empty array", raw: "[]"},
		{name: "fenced empty array", raw: "```json\n[]\n```"},
		{name: "bare fence", raw: "```\n[ ]\n```"},
		{name: "no errors sentinel", raw: "NO_ERRORS"},
		{name: "all correct sentinel", raw: "ALL_CORRECT."},
		{name: "none", raw: "None"},
		{name: "empty wrapper", raw: `{"issues": []}`},
		{name: "array then prose", raw: "[]\nNo issues found on this page."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := ParseResponse(tt.raw)
			if err != nil {
				t.Fatalf("ParseResponse(%q) error = %v", tt.raw, err)
			}
			if issues == nil || len(issues) != 0 {
				t.Fatalf("ParseResponse(%q) = %+v, want empty non-nil", tt.raw, issues)
			}
		})
	}
}

func TestParseResponseMalformed(t *testing.T) {
	tests := []string{
		"I could not find anything wrong, but here are thoughts",
		"[Spelling] recieve -> receive",
		"{\"type\": \"Spelling\"",
		"```json\n[{\"type\": \"Spelling\",]\n```",
		"42",
		`{"result": "ok"}`,
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			issues, err := ParseResponse(raw)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			if issues == nil || len(issues) != 0 {
				t.Fatalf("malformed reply should yield an empty list, got %+v", issues)
			}
		})
	}
}

func TestParseResponseStrictArray(t *testing.T) {
	raw := `[
		{"type": "Spelling", "issue": "'recieve' is misspelled", "fix": "receive", "loc": "Intro paragraph"},
		{"type": "LogicMismatch", "issue": "'About Us' points to /contact", "fix": "Point to /about", "loc": "Navigation"}
	]`
	issues, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []models.Issue{
		{Kind: models.KindSpelling, Description: "'recieve' is misspelled", SuggestedFix: "receive", Location: "Intro paragraph"},
		{Kind: models.KindLogicMismatch, Description: "'About Us' points to /contact", SuggestedFix: "Point to /about", Location: "Navigation"},
	}
	if !reflect.DeepEqual(issues, want) {
		t.Fatalf("issues:\n got %+v\nwant %+v", issues, want)
	}
}

func TestParseResponseRecoversEmbeddedJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "fenced", raw: "```json\n[{\"type\":\"Grammar\",\"issue\":\"they was\",\"fix\":\"they were\",\"loc\":\"Hero\"}]\n```"},
		{name: "prose around", raw: "Here are the issues I found:\n[{\"type\":\"Grammar\",\"issue\":\"they was\",\"fix\":\"they were\",\"loc\":\"Hero\"}]\nLet me know!"},
		{name: "wrapper object", raw: `{"issues":[{"type":"Grammar","issue":"they was","fix":"they were","loc":"Hero"}]}`},
		{name: "fenced prose inside", raw: "```\nSure:\n[{\"type\":\"Grammar\",\"issue\":\"they was\",\"fix\":\"they were\",\"loc\":\"Hero\"}]\n```"},
	}

	want := []models.Issue{{Kind: models.KindGrammar, Description: "they was", SuggestedFix: "they were", Location: "Hero"}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := ParseResponse(tt.raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(issues, want) {
				t.Fatalf("issues:\n got %+v\nwant %+v", issues, want)
			}
		})
	}
}

func TestParseResponseFieldAliases(t *testing.T) {
	raw := `[
		{"category": "typo", "description": "Teh", "suggested_fix": "The", "location": "Footer"},
		{"Kind": "link_logic", "Problem": "Home goes to /blog", "Suggestion": "Link to /", "Context": "Nav"},
		{"type": "grammar", "issue": "its a", "correction": "it's a", "section": 3},
		{"type": "Accessibility", "issue": "image without alt", "fix": true}
	]`
	issues, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []models.Issue{
		{Kind: models.KindSpelling, Description: "Teh", SuggestedFix: "The", Location: "Footer"},
		{Kind: models.KindLogicMismatch, Description: "Home goes to /blog", SuggestedFix: "Link to /", Location: "Nav"},
		{Kind: models.KindGrammar, Description: "its a", SuggestedFix: "it's a", Location: "3"},
		{Kind: models.IssueKind("Accessibility"), Description: "image without alt", SuggestedFix: "true"},
	}
	if !reflect.DeepEqual(issues, want) {
		t.Fatalf("issues:\n got %+v\nwant %+v", issues, want)
	}
}

func TestParseResponseDropsEmptyDescriptions(t *testing.T) {
	raw := `[{"type":"Spelling","issue":"  ","fix":"x"}, "stray string", {"type":"Spelling","issue":"Acommodation","fix":"Accommodation"}]`
	issues, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(issues) != 1 || issues[0].Description != "Acommodation" {
		t.Fatalf("issues=%+v", issues)
	}
}
