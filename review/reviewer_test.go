package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/aluiziolira/go-site-audit/llm"
	"github.com/aluiziolira/go-site-audit/models"
)

type fakeProvider struct {
	mu       sync.Mutex
	replies  []string
	err      error
	calls    int
	messages [][]llm.Message
}

func (f *fakeProvider) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = append(f.messages, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "[]", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) ObserveReviewCache(hit bool) {
	if hit {
		o.hits++
		return
	}
	o.misses++
}

func aboutPage() models.ExtractedPage {
	return models.ExtractedPage{
		SourceURL:   "https://example.test/",
		VisibleText: "Welcome to our agency",
		Links: []models.LinkRecord{
			{Text: "About Us", RawHref: "/contact", ResolvedURL: "https://example.test/contact"},
		},
	}
}

func TestBuildPromptCapsTextAndLinks(t *testing.T) {
	page := models.ExtractedPage{
		SourceURL:   "https://example.test/",
		VisibleText: strings.Repeat("é", 20),
	}
	for i := 0; i < 5; i++ {
		page.Links = append(page.Links, models.LinkRecord{Text: "Link", RawHref: "/p"})
	}

	prompt := BuildPrompt(page, 8, 2)
	if !strings.Contains(prompt, "PAGE URL: https://example.test/") {
		t.Fatalf("prompt missing url: %s", prompt)
	}
	if !strings.Contains(prompt, strings.Repeat("é", 8)+"\n") || strings.Contains(prompt, strings.Repeat("é", 9)) {
		t.Fatalf("text should be capped at 8 runes: %s", prompt)
	}
	if !utf8.ValidString(prompt) {
		t.Fatalf("prompt must stay valid UTF-8")
	}
	if !strings.Contains(prompt, "2. Text: 'Link' | Dest: '/p'") || strings.Contains(prompt, "3. Text:") {
		t.Fatalf("links should be capped at 2: %s", prompt)
	}
}

func TestBuildPromptEmptyPage(t *testing.T) {
	prompt := BuildPrompt(models.ExtractedPage{SourceURL: "https://example.test/"}, 100, 10)
	if !strings.Contains(prompt, "(no visible text)") || !strings.Contains(prompt, "(no links)") {
		t.Fatalf("prompt=%s", prompt)
	}
}

func TestLLMReviewerReportsIssues(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		`[{"type":"LogicMismatch","issue":"'About Us' links to /contact","fix":"Link to /about","loc":"Navigation"}]`,
	}}
	reviewer, err := NewLLMReviewer(provider, Options{MaxTextChars: 100, MaxLinks: 10})
	if err != nil {
		t.Fatalf("new reviewer: %v", err)
	}

	issues, err := reviewer.Review(context.Background(), aboutPage())
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if len(issues) != 1 || issues[0].Kind != models.KindLogicMismatch {
		t.Fatalf("issues=%+v", issues)
	}

	sent := provider.messages[0]
	if len(sent) != 2 || sent[0].Role != llm.RoleSystem || sent[1].Role != llm.RoleUser {
		t.Fatalf("messages=%+v", sent)
	}
	if !strings.Contains(sent[1].Content, "1. Text: 'About Us' | Dest: '/contact'") {
		t.Fatalf("user message missing link line: %s", sent[1].Content)
	}
}

func TestLLMReviewerMalformedReply(t *testing.T) {
	provider := &fakeProvider{replies: []string{"Sorry, I cannot help with that."}}
	reviewer, err := NewLLMReviewer(provider, Options{MaxTextChars: 100, MaxLinks: 10, CacheSize: 8})
	if err != nil {
		t.Fatalf("new reviewer: %v", err)
	}

	issues, err := reviewer.Review(context.Background(), aboutPage())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if issues == nil || len(issues) != 0 {
		t.Fatalf("issues=%+v", issues)
	}

	if _, err := reviewer.Review(context.Background(), aboutPage()); err == nil {
		t.Fatalf("malformed replies must not be cached")
	}
	if provider.calls != 2 {
		t.Fatalf("calls=%d, want 2", provider.calls)
	}
}

func TestLLMReviewerTransportError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection reset")}
	reviewer, err := NewLLMReviewer(provider, Options{MaxTextChars: 100, MaxLinks: 10})
	if err != nil {
		t.Fatalf("new reviewer: %v", err)
	}
	issues, err := reviewer.Review(context.Background(), aboutPage())
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected transport error, got %v", err)
	}
	if issues == nil {
		t.Fatalf("issues should never be nil")
	}
}

func TestLLMReviewerCache(t *testing.T) {
	provider := &fakeProvider{replies: []string{`[{"type":"Spelling","issue":"Welcom","fix":"Welcome"}]`}}
	observer := &countingObserver{}
	reviewer, err := NewLLMReviewer(provider, Options{MaxTextChars: 100, MaxLinks: 10, CacheSize: 4, Observer: observer})
	if err != nil {
		t.Fatalf("new reviewer: %v", err)
	}

	first, err := reviewer.Review(context.Background(), aboutPage())
	if err != nil {
		t.Fatalf("first review: %v", err)
	}
	first[0].Description = "mutated by caller"

	other := aboutPage()
	other.SourceURL = "https://example.test/other"
	second, err := reviewer.Review(context.Background(), other)
	if err != nil {
		t.Fatalf("second review: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("identical page bodies should hit the cache, calls=%d", provider.calls)
	}
	if second[0].Description != "Welcom" {
		t.Fatalf("cached issues must not alias caller slices, got %q", second[0].Description)
	}
	if observer.hits != 1 || observer.misses != 1 {
		t.Fatalf("hits=%d misses=%d", observer.hits, observer.misses)
	}
}

func TestNewLLMReviewerRequiresProvider(t *testing.T) {
	if _, err := NewLLMReviewer(nil, Options{}); err == nil {
		t.Fatalf("expected error without provider")
	}
}
