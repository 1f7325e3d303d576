package resilience

import (
	"time"

	"github.com/MananS02/Interview/pkg/errorsx"
)

// RetryPolicy retries transient provider failures with a fixed backoff.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do runs fn until it succeeds or the retries are exhausted. Rate limit
// responses are returned immediately: re-sending extends the limit, and
// the circuit breaker owns that case.
func (r RetryPolicy) Do(fn func() error) error {
	var err error
	for i := 0; i <= r.MaxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if rateLimited(err) || i == r.MaxRetries {
			return err
		}
		time.Sleep(r.Backoff)
	}
	return err
}

// rateLimited recognizes a provider rate limit whether it arrives as the
// concrete RateLimitError or already wrapped with a reason code.
func rateLimited(err error) bool {
	return IsRateLimit(err) || errorsx.HasReason(err, errorsx.ReasonEvalRateLimit)
}
