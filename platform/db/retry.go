package db

import (
	"context"
	"time"

	"leadsignal_backend/platform/logger"

	"github.com/sethvargo/go-retry"
)

// Retry runs fn with exponential backoff until it succeeds, attempts are
// exhausted or ctx is done. Every failure is treated as retryable. fn always
// runs at least once.
func Retry(ctx context.Context, log *logger.Logger, name string, attempts uint64, base time.Duration, fn func(context.Context) error) error {
	if attempts == 0 {
		attempts = 1
	}

	attempt := 0
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
