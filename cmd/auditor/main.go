package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-site-audit/crawler"
	"github.com/aluiziolira/go-site-audit/llm"
	"github.com/aluiziolira/go-site-audit/models"
	"github.com/aluiziolira/go-site-audit/pipeline"
	"github.com/aluiziolira/go-site-audit/review"
	"github.com/aluiziolira/go-site-audit/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitSkips  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, envFiles, err := loadConfig(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		return exitFailed
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if len(envFiles) > 0 {
		slog.Debug("loaded env files", slog.Any("files", envFiles))
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return exitFailed
	}
	slog.Debug("configuration", slog.String("config", cfg.String()))

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewCollyFetcher(cfg, metrics, logger)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		return exitFailed
	}

	provider, err := llm.NewProvider(llm.Config{
		Provider:   cfg.LLMProvider,
		Model:      cfg.LLMModel,
		APIKey:     cfg.LLMAPIKey,
		APIURL:     cfg.LLMAPIURL,
		Timeout:    cfg.ReviewTimeout,
		MaxRetries: cfg.ReviewMaxRetries,
	})
	if err != nil {
		slog.Error("initialising review engine", slog.Any("error", err))
		return exitFailed
	}
	reviewer, err := review.NewLLMReviewer(provider, review.Options{
		MaxTextChars: cfg.MaxTextChars,
		MaxLinks:     cfg.MaxLinks,
		Timeout:      cfg.ReviewTimeout,
		CacheSize:    cfg.ReviewCacheSize,
		Observer:     metrics,
		Logger:       logger,
	})
	if err != nil {
		slog.Error("initialising reviewer", slog.Any("error", err))
		return exitFailed
	}

	cfg.OutputFile = pipeline.ReportPath(cfg.OutputFormat, cfg.OutputFile)
	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		return exitFailed
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing the current page")
	}()

	metricsServer := startMetricsServer(cfg.MetricsAddr, metrics)

	p := pipeline.NewPipeline(writer, logger)
	p.Start()
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	slog.Info("starting audit",
		slog.String("seed_url", cfg.SeedURL),
		slog.Int("pages", cfg.MaxPages),
		slog.String("provider", cfg.LLMProvider),
		slog.String("model", cfg.LLMModel),
	)

	auditor := crawler.NewAuditor(cfg, fetcher, reviewer,
		crawler.WithMetrics(metrics),
		crawler.WithLogger(logger),
		crawler.WithProgress(logProgress),
		crawler.WithSink(p),
	)
	result := auditor.Run(ctx, cfg.SeedURL, cfg.MaxPages)

	code := exitCode(result)
	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		code = exitFailed
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		code = exitFailed
	}

	summaryFile := pipeline.SummaryPath(cfg.OutputFile)
	if err := pipeline.WriteSummary(summaryFile, result); err != nil {
		slog.Error("writing run summary", slog.Any("error", err))
		code = exitFailed
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(os.Stdout, result, cfg.OutputFile, summaryFile, p.GetMetrics())
	return code
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func logProgress(ev crawler.ProgressEvent) {
	slog.Info("page done",
		slog.String("url", ev.URL),
		slog.String("outcome", string(ev.Outcome)),
		slog.String("progress", fmt.Sprintf("%d/%d", ev.Processed, ev.Budget)),
		slog.Int("issues", ev.Issues),
		slog.Int("queued", ev.Queued),
	)
}

func exitCode(result *models.AuditRun) int {
	if result == nil {
		return exitFailed
	}
	switch result.Status.State {
	case models.StateCompleted:
		return exitOK
	case models.StateCompletedWithSkips:
		return exitSkips
	default:
		return exitFailed
	}
}

func printSummary(w io.Writer, result *models.AuditRun, outputFile, summaryFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Audit complete")

	fmt.Fprintf(w, "  Run:           %s\n", result.ID)
	fmt.Fprintf(w, "  Seed:          %s\n", result.SeedURL)
	switch result.Status.State {
	case models.StateFailed:
		fmt.Fprintf(w, "  Status:        %s (%s)\n", result.Status.State, result.Status.Reason)
	case models.StateCompletedWithSkips:
		fmt.Fprintf(w, "  Status:        %s (%d skipped)\n", result.Status.State, result.Status.Skipped)
	default:
		fmt.Fprintf(w, "  Status:        %s\n", result.Status.State)
	}
	if result.Interrupted {
		fmt.Fprintln(w, "  Interrupted:   yes")
	}
	fmt.Fprintf(w, "  Pages:         %d/%d\n", result.PagesProcessed, result.Budget)
	fmt.Fprintf(w, "  Issues:        %d\n", len(result.Issues))
	if len(result.Issues) == 0 && result.Status.State != models.StateFailed {
		fmt.Fprintln(w, "  No issues found on the audited pages.")
	}
	for _, skipped := range result.Skipped {
		fmt.Fprintf(w, "  Skipped:       %s [%s] %s\n", skipped.URL, skipped.Stage, skipped.Reason)
	}
	if written, ok := metrics["written_issues"].(int64); ok {
		fmt.Fprintf(w, "  Rows written:  %d\n", written)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(w, "  Validation:    %v\n", valErrors)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", result.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  Output file:   %s\n", outputFile)
	fmt.Fprintf(w, "  Summary file:  %s\n", summaryFile)
	fmt.Fprintln(w, separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
