package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-site-audit/models"
)

// MultiWriter fans every batch out to several report writers in order.
type MultiWriter struct {
	mu      sync.Mutex
	names   []string
	writers []OutputWriter
}

func newMultiWriter() *MultiWriter {
	return &MultiWriter{}
}

func (mw *MultiWriter) add(name string, w OutputWriter) {
	mw.names = append(mw.names, name)
	mw.writers = append(mw.writers, w)
}

// NewDualWriter writes the CSV report and its JSONL twin together.
func NewDualWriter(csvFilename, jsonFilename string) (*MultiWriter, error) {
	mw := newMultiWriter()

	cw, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, err
	}
	mw.add("csv", cw)

	jw, err := NewJSONWriter(jsonFilename)
	if err != nil {
		_ = mw.Close()
		return nil, err
	}
	mw.add("json", jw)

	return mw, nil
}

// Write stops at the first failing writer; earlier writers keep the batch.
func (mw *MultiWriter) Write(issues []models.Issue) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for i, w := range mw.writers {
		if err := w.Write(issues); err != nil {
			return fmt.Errorf("%s report: %w", mw.names[i], err)
		}
	}
	return nil
}

// Close closes every writer and joins their errors.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.each(OutputWriter.Close)
}

func (mw *MultiWriter) Validate() error {
	return mw.each(OutputWriter.Validate)
}

func (mw *MultiWriter) each(fn func(OutputWriter) error) error {
	var errs []error
	for i, w := range mw.writers {
		if err := fn(w); err != nil {
			errs = append(errs, fmt.Errorf("%s report: %w", mw.names[i], err))
		}
	}
	return errors.Join(errs...)
}
