package retry

import (
	"context"
	"errors"
	"time"
)

// maxDelay caps the exponential backoff so a long outage does not push the
// next attempt arbitrarily far into the future.
const maxDelay = 30 * time.Second

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so Do stops retrying immediately. A nil error
// stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or any error it wraps) was marked with
// Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do runs fn up to attempts times, sleeping delay between attempts and
// doubling it after each failure (capped). It returns nil on the first
// success, the wrapped error as soon as fn returns a Permanent error, and
// the last error once the attempts are exhausted. Context cancellation
// aborts the wait and returns ctx.Err().
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
	}

	return err
}
