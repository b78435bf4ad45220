package usecase

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"FeedPub/internal/domain"
)

// RetryPolicy bounds the retry-until-valid loop around remote summarization.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy allows three attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: ExponentialBackoff(time.Second, 30*time.Second)}
}

// ExponentialBackoff returns base*2^attempt capped at max, plus up to 50% jitter.
func ExponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base << uint(attempt)
		if d <= 0 || d > max {
			d = max
		}
		if d <= 0 {
			return 0
		}
		return d + time.Duration(rand.Int63n(int64(d)/2+1))
	}
}

// FixedBackoff always waits d.
func FixedBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsRetryable reports whether err is worth another summarization attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrMalformedResponse) || errors.Is(err, domain.ErrSummarizationUnavailable)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// bound is reached. sleep is called between attempts.
func (p RetryPolicy) Do(sleep func(time.Duration), fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && p.Backoff != nil && sleep != nil {
			sleep(p.Backoff(attempt - 1))
		}
		last = fn(attempt)
		if last == nil {
			return nil
		}
		if !IsRetryable(last) {
			return last
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: last}
}
