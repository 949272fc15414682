package review

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aluiziolira/go-site-audit/models"
)

const systemPrompt = `Act as a professional QA editor and website logic auditor for a business website.

You receive the visible text of one web page and a numbered list of its links (link text and destination).

Audit for three categories:
- Spelling: embarrassing typos and misspelled words.
- Grammar: subject-verb agreement, wrong word forms, punctuation errors.
- LogicMismatch: a link whose text does not logically match its destination
  (e.g. Text: 'View Properties' | Dest: '/about-me' is a mismatch;
  Text: 'Contact Us' | Dest: '/contact-us' and Text: 'Home' | Dest: '/' are fine).

Rules:
1. IGNORE proper nouns, brand names, street names and industry jargon or abbreviations.
2. Report only real problems. Do not restate correct text.
3. Output ONLY a JSON array, no prose and no code fences. Each element is an object:
   {"type": "Spelling" | "Grammar" | "LogicMismatch", "issue": "<what is wrong>", "fix": "<suggested correction>", "loc": "<where on the page>"}
4. If there are no issues, output [] and nothing else.`

// BuildPrompt renders the user message for one page. Text is capped at
// maxText runes and only the first maxLinks links are listed.
func BuildPrompt(page models.ExtractedPage, maxText, maxLinks int) string {
	return fmt.Sprintf("PAGE URL: %s\n\n%s", page.SourceURL, promptBody(page, maxText, maxLinks))
}

// promptBody is the page-independent part of the prompt, so pages sharing a
// template produce the same body.
func promptBody(page models.ExtractedPage, maxText, maxLinks int) string {
	var b strings.Builder

	b.WriteString("PAGE TEXT:\n")
	text := truncateRunes(page.VisibleText, maxText)
	if text == "" {
		b.WriteString("(no visible text)")
	}
	b.WriteString(text)
	b.WriteString("\n\n")

	links := page.Links
	if maxLinks >= 0 && len(links) > maxLinks {
		links = links[:maxLinks]
	}
	b.WriteString("LINKS:\n")
	if len(links) == 0 {
		b.WriteString("(no links)\n")
	}
	for i, link := range links {
		fmt.Fprintf(&b, "%d. Text: '%s' | Dest: '%s'\n", i+1, link.Text, link.RawHref)
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
