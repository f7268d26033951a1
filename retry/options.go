// Package retry implements backoff retry with the same functional-options
// shape as the teacher's util/retry package: a SetOptions struct built up by
// chainable Options functions, plus a Do that actually executes the loop
// (which the teacher's slice of that package left to its callers).
package retry

import (
	"math/rand"
	"time"
)

// SetOptions carries the tunables for a single Do call.
type SetOptions struct {
	Message            string
	RetryCount         int
	InfiniteRetry      bool
	ExponentialBackoff bool
	BackoffDuration    time.Duration
	BackoffMultiplier  float64
	MaxBackoff         time.Duration
	Jitter             bool
}

// Option mutates a SetOptions during NewSetOptions.
type Option func(*SetOptions)

// NewSetOptions builds a SetOptions from defaults plus the given Options, the
// same composition order the teacher's package uses.
func NewSetOptions(opts ...Option) *SetOptions {
	o := &SetOptions{
		RetryCount:         5,
		BackoffDuration:    100 * time.Millisecond,
		BackoffMultiplier:  2.0,
		MaxBackoff:         10 * time.Second,
		ExponentialBackoff: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMessage sets the log-friendly description of the operation being
// retried.
func WithMessage(msg string) Option {
	return func(o *SetOptions) { o.Message = msg }
}

// WithRetryCount caps the number of attempts (ignored when InfiniteRetry is
// set).
func WithRetryCount(n int) Option {
	return func(o *SetOptions) { o.RetryCount = n }
}

// WithInfiniteRetry disables the retry count cap entirely.
func WithInfiniteRetry() Option {
	return func(o *SetOptions) { o.InfiniteRetry = true }
}

// WithBackoffDuration sets the initial backoff delay.
func WithBackoffDuration(d time.Duration) Option {
	return func(o *SetOptions) { o.BackoffDuration = d }
}

// WithBackoffMultiplier sets the exponential growth factor applied after
// each failed attempt.
func WithBackoffMultiplier(m float64) Option {
	return func(o *SetOptions) { o.BackoffMultiplier = m }
}

// WithMaxBackoff caps the backoff delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(o *SetOptions) { o.MaxBackoff = d }
}

// WithoutExponentialBackoff makes every attempt wait the same
// BackoffDuration instead of growing it.
func WithoutExponentialBackoff() Option {
	return func(o *SetOptions) { o.ExponentialBackoff = false }
}

// WithJitter randomizes each computed delay by up to +/-50%, matching the
// jitter the teacher's mining coordinator applies around candidate retries.
func WithJitter() Option {
	return func(o *SetOptions) { o.Jitter = true }
}

// Do runs fn until it returns a nil error, the context-free retry budget is
// exhausted, or shouldRetry returns false for the latest error. A nil
// shouldRetry retries every non-nil error.
func Do(fn func() error, shouldRetry func(error) bool, opts ...Option) error {
	o := NewSetOptions(opts...)

	delay := o.BackoffDuration
	var lastErr error

	for attempt := 0; o.InfiniteRetry || attempt < o.RetryCount; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(lastErr) {
			return lastErr
		}

		wait := delay
		if o.Jitter {
			jitter := time.Duration(rand.Int63n(int64(wait)/2 + 1))
			if rand.Intn(2) == 0 {
				wait += jitter
			} else {
				wait -= jitter
			}
		}
		time.Sleep(wait)

		if o.ExponentialBackoff {
			delay = time.Duration(float64(delay) * o.BackoffMultiplier)
			if delay > o.MaxBackoff {
				delay = o.MaxBackoff
			}
		}
	}

	return lastErr
}
