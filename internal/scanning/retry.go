package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// retryExtractor retries a failed analysis with a fixed delay
type retryExtractor struct {
	next     Extractor
	attempts int
	delay    time.Duration
}

// WithRetry wraps an Extractor so failed calls are retried. attempts is the
// total number of calls made; values below 1 are treated as 1. Uploads that
// fail with ErrUnreadableDocument are not retried.
func WithRetry(next Extractor, attempts int, delay time.Duration) Extractor {
	if attempts < 1 {
		attempts = 1
	}
	return &retryExtractor{next: next, attempts: attempts, delay: delay}
}

func (r *retryExtractor) AnalyzeExpense(ctx context.Context, imageData []byte, contentType string) (*AnalysisResult, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		result, err := r.next.AnalyzeExpense(ctx, imageData, contentType)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == r.attempts || errors.Is(err, ErrUnreadableDocument) {
			break
		}
		slog.Warn("Expense analysis failed, retrying",
			"attempt", attempt,
			"max_attempts", r.attempts,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting to retry: %w", ctx.Err())
		case <-time.After(r.delay):
		}
	}
	return nil, lastErr
}

func (r *retryExtractor) Close() error {
	return r.next.Close()
}
