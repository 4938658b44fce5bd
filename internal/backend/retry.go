package backend

import (
	"errors"
	"math/rand"
	"time"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns the wait before retry n (0-indexed): 250ms doubling up
// to 5s, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 5)
	base := min(time.Duration(1<<uint(attempt))*250*time.Millisecond, 5*time.Second)
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}
