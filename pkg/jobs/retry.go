package jobs

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often a device read is attempted.
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultErrorRetry is applied to error-code reads.
var DefaultErrorRetry = RetryPolicy{Attempts: 3, Interval: 250 * time.Millisecond}

func (p RetryPolicy) orDefault() RetryPolicy {
	if p.Attempts <= 0 {
		return DefaultErrorRetry
	}
	return p
}

// Do runs op until it succeeds, the attempts are spent, or ctx is done.
// It returns the last error.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	p = p.orDefault()
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(p.Attempts-1)),
		ctx,
	)
	return backoff.Retry(op, b)
}
