package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aluiziolira/go-site-audit/models"
)

// Metrics bundles Prometheus collectors for an audit process.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	ErrorsTotal        *prometheus.CounterVec
	PagesProcessed     prometheus.Counter
	PagesSkipped       *prometheus.CounterVec
	ReviewsTotal       *prometheus.CounterVec
	ReviewDuration     prometheus.Histogram
	ReviewCacheLookups *prometheus.CounterVec
	IssuesTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_fetch_requests_total",
			Help: "Page fetches issued by the auditor.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_fetch_duration_seconds",
			Help:    "Latency of page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_fetch_errors_total",
			Help: "Failed page fetches by error type.",
		},
		[]string{"error_type"},
	)
	pagesProcessed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_pages_processed_total",
			Help: "Pages fetched and counted against the budget.",
		},
	)
	pagesSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_pages_skipped_total",
			Help: "Pages that contributed no issues, by stage.",
		},
		[]string{"stage"},
	)
	reviews := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_reviews_total",
			Help: "Review engine calls by outcome.",
		},
		[]string{"outcome"},
	)
	reviewDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_review_duration_seconds",
			Help:    "Latency of review engine calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_review_cache_lookups_total",
			Help: "Review cache lookups by result.",
		},
		[]string{"result"},
	)
	issues := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_issues_total",
			Help: "Issues reported, by category.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(requests, requestDuration, errorsTotal, pagesProcessed, pagesSkipped,
		reviews, reviewDuration, cacheLookups, issues)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		ErrorsTotal:        errorsTotal,
		PagesProcessed:     pagesProcessed,
		PagesSkipped:       pagesSkipped,
		ReviewsTotal:       reviews,
		ReviewDuration:     reviewDuration,
		ReviewCacheLookups: cacheLookups,
		IssuesTotal:        issues,
	}
}

// IncRequest increments the fetch requests counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records a fetch duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncError increments the fetch errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncPages counts a processed page.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesProcessed.Inc()
}

// IncSkipped counts a skipped page.
func (m *Metrics) IncSkipped(stage models.SkipStage) {
	if m == nil {
		return
	}
	m.PagesSkipped.WithLabelValues(string(stage)).Inc()
}

// ObserveReview records one review call and its outcome.
func (m *Metrics) ObserveReview(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ReviewsTotal.WithLabelValues(outcome).Inc()
	m.ReviewDuration.Observe(d.Seconds())
}

// ObserveReviewCache records a review cache lookup.
func (m *Metrics) ObserveReviewCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ReviewCacheLookups.WithLabelValues(result).Inc()
}

// AddIssues counts issues by kind. Unknown kinds share one label.
func (m *Metrics) AddIssues(issues []models.Issue) {
	if m == nil {
		return
	}
	for _, issue := range issues {
		kind := "other"
		if issue.Kind.Known() {
			kind = string(issue.Kind)
		}
		m.IssuesTotal.WithLabelValues(kind).Inc()
	}
}
