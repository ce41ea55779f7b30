package recovery

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cogmem/cogmem/internal/cogerr"
)

// RetryConfig bounds a retried IO operation.
type RetryConfig struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
}

// DefaultRetryConfig retries for up to 5 seconds, starting at 50ms and
// backing off exponentially — long enough to ride out a transient fsync
// stall or a lock held briefly by a concurrent reader, short enough that a
// genuinely dead disk fails the caller rather than hanging it.
var DefaultRetryConfig = RetryConfig{
	MaxElapsedTime:  5 * time.Second,
	InitialInterval: 50 * time.Millisecond,
}

// WithRetry runs op, retrying with exponential backoff only when it fails
// with a cogerr.KindIO error — a Corrupt, Validation or Conflict error is
// never transient and is returned immediately. A KindIO failure usually
// means a momentary OS-level hiccup (EINTR, a busy disk, a lock contended
// by another process briefly) rather than a permanent fault, so retrying
// is the right default; the caller still sees the final error if every
// attempt in the budget fails.
func WithRetry(cfg RetryConfig, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxElapsedTime = cfg.MaxElapsedTime

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !cogerr.Is(err, cogerr.KindIO) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// Unwrap is a small convenience for callers that want the underlying cause
// out of a backoff.Permanent-wrapped error without importing backoff
// themselves.
func Unwrap(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
