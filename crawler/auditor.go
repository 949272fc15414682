// Package crawler drives a bounded breadth-first audit of one site.
package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-site-audit/config"
	"github.com/aluiziolira/go-site-audit/models"
	"github.com/aluiziolira/go-site-audit/parser"
	"github.com/aluiziolira/go-site-audit/pipeline"
	"github.com/aluiziolira/go-site-audit/review"
	"github.com/aluiziolira/go-site-audit/scraper"
)

// Outcome describes what happened to one page.
type Outcome string

const (
	OutcomeAudited     Outcome = "audited"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeReviewSkip  Outcome = "review_failed"
	OutcomeDuplicate   Outcome = "duplicate"
)

// ProgressEvent is emitted once per page attempt.
type ProgressEvent struct {
	URL       string
	Outcome   Outcome
	Processed int
	Budget    int
	Issues    int
	Queued    int
}

type ProgressFunc func(ProgressEvent)

// IssueSink receives each page's tagged issues as soon as they are known.
type IssueSink interface {
	Process(issues []models.Issue) error
}

// Auditor runs audits. It holds no per-run state and may be reused for
// sequential runs.
type Auditor struct {
	cfg      *config.Config
	fetcher  scraper.Fetcher
	reviewer review.Reviewer
	metrics  *scraper.Metrics
	logger   *slog.Logger
	progress ProgressFunc
	sink     IssueSink
	now      func() time.Time
}

type Option func(*Auditor)

func WithMetrics(m *scraper.Metrics) Option {
	return func(a *Auditor) { a.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Auditor) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(a *Auditor) { a.progress = fn }
}

// WithSink streams issues to sink while the run is in progress.
func WithSink(sink IssueSink) Option {
	return func(a *Auditor) { a.sink = sink }
}

func NewAuditor(cfg *config.Config, fetcher scraper.Fetcher, reviewer review.Reviewer, opts ...Option) *Auditor {
	a := &Auditor{
		cfg:      cfg,
		fetcher:  fetcher,
		reviewer: reviewer,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run holds the mutable state of a single audit.
type run struct {
	result   *models.AuditRun
	frontier *Frontier
	agg      *pipeline.Aggregator
}

// Run audits up to budget pages starting at seedURL. It always returns a
// result; failures are expressed in its Status.
func (a *Auditor) Run(ctx context.Context, seedURL string, budget int) *models.AuditRun {
	result := &models.AuditRun{
		ID:        uuid.NewString(),
		SeedURL:   seedURL,
		Budget:    budget,
		Issues:    []models.Issue{},
		Skipped:   []models.SkippedPage{},
		StartedAt: a.now(),
	}
	logger := a.logger.With(slog.String("run_id", result.ID))

	if budget <= 0 {
		return a.fail(result, logger, "budget must be positive")
	}
	if err := config.ValidateSeedURL(seedURL); err != nil {
		return a.fail(result, logger, err.Error())
	}
	domain, err := parser.CrawlDomain(seedURL)
	if err != nil {
		return a.fail(result, logger, err.Error())
	}

	seed, err := parser.CanonicalURL(seedURL)
	if err != nil {
		return a.fail(result, logger, err.Error())
	}
	r := &run{
		result:   result,
		frontier: NewFrontier(domain, budget, budget*a.queueFactor()),
		agg:      pipeline.NewAggregator(),
	}
	r.frontier.MarkSeen(seed)
	pacer := a.newPacer()

	logger.Info("audit seeding", slog.String("seed", seed), slog.String("domain", domain), slog.Int("budget", budget))

	if err := pacer.Wait(ctx); err != nil {
		return a.fail(result, logger, "interrupted")
	}
	fetched := a.fetcher.Fetch(ctx, seed, a.cfg.Timeout)
	if !fetched.Status.OK() {
		if ctx.Err() != nil {
			return a.fail(result, logger, "interrupted")
		}
		return a.fail(result, logger, "seed fetch failed: "+fetched.Status.String())
	}
	a.processPage(ctx, r, logger, seed, fetched)

	logger.Info("audit draining", slog.Int("queued", r.frontier.Len()))
	for result.PagesProcessed < budget {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}
		next, ok := r.frontier.Next()
		if !ok {
			break
		}
		if err := pacer.Wait(ctx); err != nil {
			result.Interrupted = true
			break
		}

		fetched := a.fetcher.Fetch(ctx, next, a.cfg.Timeout)
		if !fetched.Status.OK() {
			a.skip(r, logger, next, models.SkipFetch, fetched.Status.String())
			a.emit(r, next, OutcomeFetchFailed, 0)
			continue
		}
		a.processPage(ctx, r, logger, next, fetched)
	}

	result.Issues = r.agg.Issues()
	if len(result.Skipped) == 0 {
		result.Status = models.RunStatus{State: models.StateCompleted}
	} else {
		result.Status = models.RunStatus{State: models.StateCompletedWithSkips, Skipped: len(result.Skipped)}
	}
	result.FinishedAt = a.now()

	logger.Info("audit done",
		slog.String("state", string(result.Status.State)),
		slog.Int("pages", result.PagesProcessed),
		slog.Int("issues", len(result.Issues)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("queue_dropped", r.frontier.Dropped()),
		slog.Bool("interrupted", result.Interrupted),
		slog.Duration("elapsed", result.Duration()),
	)
	return result
}

// processPage audits one fetched page. Pages are keyed by the URL they
// landed on, so a redirect onto an already audited page is not reviewed again.
func (a *Auditor) processPage(ctx context.Context, r *run, logger *slog.Logger, pageURL string, fetched models.PageFetchResult) {
	base := pageURL
	if fetched.FinalURL != "" {
		if final, err := parser.CanonicalURL(fetched.FinalURL); err == nil {
			base = final
		}
	}
	r.frontier.MarkSeen(base)
	if !r.frontier.MarkVisited(base) {
		logger.Info("page already audited",
			slog.String("url", pageURL),
			slog.String("final_url", base),
		)
		a.emit(r, pageURL, OutcomeDuplicate, 0)
		return
	}

	page := parser.Extract(fetched.RawHTML, base)
	page.SourceURL = pageURL

	enqueued := 0
	for _, link := range page.Links {
		if parser.Classify(link, r.frontier.Domain()) != models.SameDomain {
			continue
		}
		if r.frontier.Offer(link.ResolvedURL) {
			enqueued++
		}
	}
	logger.Debug("page extracted",
		slog.String("url", pageURL),
		slog.Int("text_chars", len(page.VisibleText)),
		slog.Int("links", len(page.Links)),
		slog.Int("enqueued", enqueued),
	)

	start := time.Now()
	issues, err := a.reviewer.Review(ctx, page)
	outcome := OutcomeAudited
	if err != nil {
		a.metrics.ObserveReview("failed", time.Since(start))
		a.skip(r, logger, pageURL, models.SkipReview, err.Error())
		outcome = OutcomeReviewSkip
	} else {
		a.metrics.ObserveReview("ok", time.Since(start))
	}

	tagged := r.agg.Tag(issues, pageURL)
	a.metrics.AddIssues(tagged)
	if a.sink != nil {
		if err := a.sink.Process(tagged); err != nil {
			logger.Error("report sink rejected issues", slog.String("url", pageURL), slog.Any("error", err))
		}
	}

	r.result.PagesProcessed++
	a.metrics.IncPages()
	logger.Info("page audited",
		slog.String("url", pageURL),
		slog.Int("issues", len(tagged)),
		slog.Int("processed", r.result.PagesProcessed),
		slog.Int("budget", r.result.Budget),
	)
	a.emit(r, pageURL, outcome, len(tagged))
}

func (a *Auditor) skip(r *run, logger *slog.Logger, pageURL string, stage models.SkipStage, reason string) {
	r.result.Skipped = append(r.result.Skipped, models.SkippedPage{URL: pageURL, Stage: stage, Reason: reason})
	a.metrics.IncSkipped(stage)
	logger.Warn("page skipped",
		slog.String("url", pageURL),
		slog.String("stage", string(stage)),
		slog.String("reason", reason),
	)
}

func (a *Auditor) fail(result *models.AuditRun, logger *slog.Logger, reason string) *models.AuditRun {
	result.Status = models.RunStatus{State: models.StateFailed, Reason: reason}
	result.Issues = []models.Issue{}
	result.PagesProcessed = 0
	result.FinishedAt = a.now()
	logger.Error("audit failed", slog.String("seed", result.SeedURL), slog.String("reason", reason))
	return result
}

func (a *Auditor) emit(r *run, pageURL string, outcome Outcome, issues int) {
	if a.progress == nil {
		return
	}
	a.progress(ProgressEvent{
		URL:       pageURL,
		Outcome:   outcome,
		Processed: r.result.PagesProcessed,
		Budget:    r.result.Budget,
		Issues:    issues,
		Queued:    r.frontier.Len(),
	})
}

func (a *Auditor) queueFactor() int {
	if a.cfg.QueueFactor <= 0 {
		return 1
	}
	return a.cfg.QueueFactor
}

// newPacer spaces consecutive fetches by the configured delay. The first
// fetch is never delayed.
func (a *Auditor) newPacer() *rate.Limiter {
	if a.cfg.Delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(a.cfg.Delay), 1)
}
