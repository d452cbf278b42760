package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// RetryBaseDelay is the first Fibonacci backoff step. Tests lower it.
var RetryBaseDelay = 500 * time.Millisecond

// StatusError is a non-2xx response from a remote backend
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("unexpected status %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Transient reports whether err is worth retrying: 429, 5xx and network errors.
// Context cancellation is never transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}

	var ne net.Error
	return errors.As(err, &ne)
}

// Retry runs task, retrying transient failures up to maxRetries times with
// Fibonacci backoff. The last error is returned when retries run out.
func Retry(ctx context.Context, maxRetries uint64, task func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(RetryBaseDelay))

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := task(ctx)
		if err == nil {
			return nil
		}
		if Transient(err) {
			zap.L().Debug("retry: transient failure", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
}
