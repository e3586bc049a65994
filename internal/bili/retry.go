package bili

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// RetryPolicy controls retry behavior for platform calls.
type RetryPolicy struct {
	Max      int           // total attempts, including the first
	Interval time.Duration // fixed wait between attempts
}

// DefaultRetryPolicy matches the platform's tolerance for polite clients.
var DefaultRetryPolicy = RetryPolicy{
	Max:      10,
	Interval: 5 * time.Second,
}

// RetryDo runs fn up to p.Max times, waiting p.Interval between attempts.
// Transport faults and application-level rejections (code != 0) are
// indistinguishable from the response alone, so every error is retried the
// same way. On exhaustion the zero value and the last error are returned;
// callers treat that as an empty result for the call, never a fatal fault.
// Context cancellation aborts the wait and is returned as-is.
func RetryDo[T any](ctx context.Context, p RetryPolicy, label string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if p.Max < 1 {
		p.Max = 1
	}

	for attempt := 1; attempt <= p.Max; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < p.Max {
			IncrRetries()
			slog.Warn("retrying",
				slog.String("call", label),
				slog.Int("attempt", attempt),
				slog.Int("max", p.Max),
				slog.Duration("wait", p.Interval),
				slog.Any("error", err))
			select {
			case <-time.After(p.Interval):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	slog.Error("retries exhausted",
		slog.String("call", label),
		slog.Int("attempts", p.Max),
		slog.Any("error", lastErr))
	return zero, lastErr
}

// httpStatusError wraps a non-2xx transport status.
type httpStatusError struct {
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
