package heartbeat

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// withBoundedRetry runs fn up to numRetries+1 times (retry-go's Attempts
// counts the first attempt), used for the agent's bounded RPC retry
// discipline (§4.2 step 1, "otherwise pass numRetries"). numRetries == 0
// means a single attempt, no retry. A *ConflictError is returned at once,
// never retried: resending the same stale version cannot succeed.
func withBoundedRetry(ctx context.Context, numRetries int, fn func() error) error {
	if numRetries <= 0 {
		return fn()
	}
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(uint(numRetries)+1),
		retry.LastErrorOnly(true),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool { return !IsConflict(err) }),
	)
}

// retryUnconditionally implements Initialize's conflict-retry policy (§4.1):
// sleep for interval and retry forever while shouldRetry(err) is true. It
// returns on the first nil error, the first error shouldRetry rejects, or
// context cancellation.
func retryUnconditionally(ctx context.Context, interval time.Duration, shouldRetry func(error) bool, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
