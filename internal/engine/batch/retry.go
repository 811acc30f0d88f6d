package batch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default retry configuration.
const (
	// DefaultRetryCount is the total number of attempts made per item.
	DefaultRetryCount = 3

	// MaxRetryCount is the largest accepted attempt count.
	MaxRetryCount = 10

	// DefaultRetryDelay is the backoff unit; attempt n waits n*DefaultRetryDelay.
	DefaultRetryDelay = 500 * time.Millisecond
)

// ErrInvalidRetryCount is returned when a policy asks for fewer than one attempt.
var ErrInvalidRetryCount = fmt.Errorf("retry count must be between 1 and %d", MaxRetryCount)

// ImportFunc creates one item remotely and returns the server's view of it.
type ImportFunc[T, R any] func(ctx context.Context, item T) (R, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy controls how often and how patiently a failing call is retried.
type RetryPolicy struct {
	// Attempts is the total number of calls made for one item, including the first.
	Attempts int

	// BaseDelay is multiplied by the attempt number to get the wait before the next attempt.
	BaseDelay time.Duration

	// RetryIf decides whether an error is worth another attempt. Nil retries every error.
	RetryIf func(error) bool

	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep SleepFunc
}

// DefaultRetryPolicy returns three attempts with 500ms linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  DefaultRetryCount,
		BaseDelay: DefaultRetryDelay,
	}
}

// Validate checks the policy bounds.
func (p RetryPolicy) Validate() error {
	if p.Attempts < 1 || p.Attempts > MaxRetryCount {
		return fmt.Errorf("%w: got %d", ErrInvalidRetryCount, p.Attempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", p.BaseDelay)
	}
	return nil
}

// Delay returns the wait after the given 1-based failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

func (p RetryPolicy) shouldRetry(err error) bool {
	if p.RetryIf == nil {
		return true
	}
	return p.RetryIf(err)
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

// Outcome is the settled result of importing one item.
type Outcome[R any] struct {
	Success  bool   `json:"success"`
	Data     R      `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts"`

	// Err is the last error returned by the importer.
	Err error `json:"-"`
}

// Retry calls fn for item until it succeeds or the policy gives up. It never returns
// an error and never panics: every failure, including a panicking importer, ends up in
// the returned Outcome.
func Retry[T, R any](ctx context.Context, item T, fn ImportFunc[T, R], policy RetryPolicy) Outcome[R] {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var out Outcome[R]
	for attempt := 1; attempt <= attempts; attempt++ {
		out.Attempts = attempt

		data, err := safeCall(ctx, item, fn)
		if err == nil {
			out.Success = true
			out.Data = data
			out.Err = nil
			out.Error = ""
			return out
		}
		out.Err = err
		out.Error = err.Error()

		if attempt == attempts || !policy.shouldRetry(err) {
			break
		}
		if sleepErr := policy.sleep(ctx, policy.Delay(attempt)); sleepErr != nil {
			out.Err = fmt.Errorf("%w: %w", err, sleepErr)
			out.Error = out.Err.Error()
			break
		}
	}
	return out
}

// safeCall runs fn and converts a panic into an error.
func safeCall[T, R any](ctx context.Context, item T, fn ImportFunc[T, R]) (data R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("importer panicked: %v", r)
		}
	}()
	return fn(ctx, item)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that RetryUnlessPermanent stops retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RetryUnlessPermanent is a RetryIf predicate that skips errors wrapped with Permanent.
func RetryUnlessPermanent(err error) bool {
	return !IsPermanent(err)
}
