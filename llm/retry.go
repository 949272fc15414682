package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// StatusError is a non-2xx reply from the engine.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Retryable reports whether the engine may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

type retrySettings struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

const maxErrorBody = 512

// doWithRetry sends the request built by newRequest, retrying on 429, 5xx and
// transport errors with jittered exponential backoff. A returned response is
// always 2xx and its body must be closed by the caller.
//
//nolint:bodyclose // false positive: [*http.Response] is a generic type parameter
func doWithRetry(ctx context.Context, client *http.Client, settings retrySettings, newRequest func() (*http.Request, error)) (*http.Response, error) {
	policy := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(settings.baseDelay, settings.maxDelay).
		WithMaxRetries(settings.maxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ *http.Response, err error) bool {
			return shouldRetry(ctx, err)
		}).
		Build()

	return failsafe.With(policy).WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := newRequest()
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		return resp, nil
	})
}

func shouldRetry(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
