package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-site-audit/config"
	"github.com/aluiziolira/go-site-audit/models"
)

const (
	ctxBody     = "body"
	ctxStatus   = "status"
	ctxFinalURL = "final_url"
)

// Fetcher retrieves the raw HTML of one page. Failures are reported in the
// result status, never as a Go error.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) models.PageFetchResult
}

// CollyFetcher fetches pages one at a time through a synchronous colly
// collector. It performs no retries.
type CollyFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics
	logger    *slog.Logger

	// colly's request timeout is collector-wide, so calls are serialised.
	mu sync.Mutex
}

// NewCollyFetcher builds a fetcher configured from cfg. metrics may be nil.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics, logger *slog.Logger) (*CollyFetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(cfg.MaxBodyBytes),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if cfg.RandomDelay > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			RandomDelay: cfg.RandomDelay,
		}); err != nil {
			return nil, fmt.Errorf("configure rate limits: %w", err)
		}
	}

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxBody, r.Body)
		r.Ctx.Put(ctxStatus, r.StatusCode)
		if r.Request != nil && r.Request.URL != nil {
			r.Ctx.Put(ctxFinalURL, r.Request.URL.String())
		}
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxStatus, r.StatusCode)
		}
	})

	return &CollyFetcher{
		cfg:       cfg,
		collector: collector,
		Metrics:   metrics,
		logger:    logger,
	}, nil
}

// Fetch retrieves rawURL. timeout overrides the configured request timeout
// when positive.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) models.PageFetchResult {
	result := models.PageFetchResult{URL: rawURL}

	if err := checkFetchURL(rawURL); err != nil {
		return f.fail(result, err, 0)
	}
	if ctx != nil && ctx.Err() != nil {
		return f.fail(result, ctx.Err(), 0)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	f.collector.SetRequestTimeout(timeout)

	reqCtx := colly.NewContext()
	start := time.Now()
	f.Metrics.IncRequest("started")
	err := f.collector.Request(http.MethodGet, rawURL, nil, reqCtx, nil)
	f.Metrics.ObserveDuration(time.Since(start))

	status, _ := reqCtx.GetAny(ctxStatus).(int)
	if err != nil {
		return f.fail(result, err, status)
	}

	body, _ := reqCtx.GetAny(ctxBody).([]byte)
	result.RawHTML = body
	result.FinalURL = rawURL
	if final, ok := reqCtx.GetAny(ctxFinalURL).(string); ok && final != "" {
		result.FinalURL = final
	}
	result.Status = models.FetchStatus{Kind: models.FetchOK, Code: status}

	f.Metrics.IncRequest("succeeded")
	f.logger.Debug("page fetched",
		slog.String("url", rawURL),
		slog.Int("status", status),
		slog.Int("bytes", len(body)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result
}

func (f *CollyFetcher) fail(result models.PageFetchResult, err error, statusCode int) models.PageFetchResult {
	classified := classifyError(err, statusCode)
	category := errorTypeLabel(classified)

	f.Metrics.IncRequest("failed")
	f.Metrics.IncError(category)

	if statusCode != 0 {
		result.Status = models.FetchStatus{Kind: models.FetchHTTPError, Code: statusCode}
	} else {
		result.Status = models.FetchStatus{Kind: models.FetchNetworkError, Message: classified.Error()}
	}

	f.logger.Warn("fetch failed",
		slog.String("url", result.URL),
		slog.String("category", category),
		slog.Int("status", statusCode),
		slog.Any("error", err),
	)
	return result
}

func checkFetchURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL{Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidURL{Err: fmt.Errorf("unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return ErrInvalidURL{Err: fmt.Errorf("missing host")}
	}
	return nil
}
