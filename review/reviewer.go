// Package review asks a language model to audit extracted pages.
package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-site-audit/llm"
	"github.com/aluiziolira/go-site-audit/models"
)

// Reviewer audits one extracted page. The returned slice is never nil.
type Reviewer interface {
	Review(ctx context.Context, page models.ExtractedPage) ([]models.Issue, error)
}

// CacheObserver is told about every cache lookup.
type CacheObserver interface {
	ObserveReviewCache(hit bool)
}

type Options struct {
	MaxTextChars int
	MaxLinks     int
	Timeout      time.Duration
	CacheSize    int
	Observer     CacheObserver
	Logger       *slog.Logger
}

// LLMReviewer reviews pages through an llm.Provider. Identical prompts are
// answered from an LRU cache when CacheSize > 0.
type LLMReviewer struct {
	provider llm.Provider
	opts     Options
	cache    *lru.Cache[string, []models.Issue]
	logger   *slog.Logger
}

func NewLLMReviewer(provider llm.Provider, opts Options) (*LLMReviewer, error) {
	if provider == nil {
		return nil, fmt.Errorf("review: provider is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &LLMReviewer{provider: provider, opts: opts, logger: logger}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, []models.Issue](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("review: create cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

func (r *LLMReviewer) Review(ctx context.Context, page models.ExtractedPage) ([]models.Issue, error) {
	prompt := BuildPrompt(page, r.opts.MaxTextChars, r.opts.MaxLinks)
	key := promptKey(promptBody(page, r.opts.MaxTextChars, r.opts.MaxLinks))

	if r.cache != nil {
		cached, ok := r.cache.Get(key)
		r.observe(ok)
		if ok {
			r.logger.Debug("review cache hit", slog.String("url", page.SourceURL))
			return cloneIssues(cached), nil
		}
	}

	callCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	reply, err := r.provider.Complete(callCtx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return []models.Issue{}, fmt.Errorf("review %s: %w", page.SourceURL, err)
	}

	issues, err := ParseResponse(reply)
	if err != nil {
		return issues, fmt.Errorf("review %s: %w", page.SourceURL, err)
	}

	if r.cache != nil {
		r.cache.Add(key, cloneIssues(issues))
	}
	return issues, nil
}

func (r *LLMReviewer) observe(hit bool) {
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveReviewCache(hit)
	}
}

func promptKey(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

func cloneIssues(in []models.Issue) []models.Issue {
	out := make([]models.Issue, len(in))
	copy(out, in)
	return out
}
