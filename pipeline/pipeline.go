package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-site-audit/models"
	"github.com/aluiziolira/go-site-audit/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for report output.
type OutputWriter interface {
	Write(issues []models.Issue) error
	Close() error
	Validate() error
}

// NewWriter opens the writer for format at ReportPath(format, filename).
// Dual output writes the CSV there and the JSONL beside it.
func NewWriter(format, filename string) (OutputWriter, error) {
	format = strings.ToLower(format)
	switch format {
	case "json":
		return NewJSONWriter(ReportPath(format, filename))
	case "csv":
		return NewCSVWriter(ReportPath(format, filename))
	case "dual":
		csvFile := ReportPath(format, filename)
		return NewDualWriter(csvFile, JSONPath(csvFile))
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// reportExts are the extensions ReportPath replaces.
var reportExts = []string{".csv", ".jsonl", ".json"}

func trimReportExt(filename string) string {
	lower := strings.ToLower(filename)
	for _, ext := range reportExts {
		if strings.HasSuffix(lower, ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}

// ReportPath gives filename the extension format writes: ".json" for json,
// ".csv" for csv and for the CSV half of dual.
func ReportPath(format, filename string) string {
	if strings.EqualFold(format, "json") {
		return trimReportExt(filename) + ".json"
	}
	return trimReportExt(filename) + ".csv"
}

// JSONPath derives the JSONL file written next to a CSV report.
func JSONPath(csvFilename string) string {
	return trimReportExt(csvFilename) + ".json"
}

// Pipeline streams validated issues to an OutputWriter. A single worker
// drains the queue so records reach the writer in submission order.
type Pipeline struct {
	writer    OutputWriter
	issueCh   chan models.Issue
	batchSize int
	logger    *slog.Logger

	wg sync.WaitGroup

	metrics metrics

	mu      sync.Mutex // guards closed/err/started
	closed  bool
	started bool
	err     error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline with a modest in-memory buffer.
func NewPipeline(writer OutputWriter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		writer:    writer,
		issueCh:   make(chan models.Issue, 256),
		batchSize: 32,
		logger:    logger,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}
}

// Start launches the writer goroutine. Calling it twice is a no-op.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.closed || p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.worker()
}

// Process enqueues issues for writing.
func (p *Pipeline) Process(issues []models.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, issue := range issues {
		if err := p.enqueue(issue); err != nil {
			return err
		}
	}
	return nil
}

// Close drains pending issues, flushes the final batch and prevents more
// submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.issueCh)
	})

	p.wg.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				written := metrics["written_issues"].(int64)
				validation := metrics["validation_errors"].(map[string]int)
				p.logger.Info("report progress",
					slog.Int64("written", written),
					slog.Any("validation_errors", validation),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]models.Issue, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		p.metrics.addWritten(len(batch))
		batch = batch[:0]
		return nil
	}

	for issue := range p.issueCh {
		if err := parser.ValidateIssue(&issue); err != nil {
			p.metrics.addValidation("invalid_record")
			p.logger.Debug("dropping invalid issue", slog.Any("error", err))
			continue
		}
		batch = append(batch, issue)
		// Flush per page-sized burst so partial reports survive an interrupt.
		if len(batch) >= p.batchSize || len(p.issueCh) == 0 {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) enqueue(issue models.Issue) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.issueCh <- issue:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.issueCh)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	written    int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) addWritten(n int) {
	m.mu.Lock()
	m.written += int64(n)
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"written_issues":    m.written,
		"validation_errors": copyValidation,
	}
}
