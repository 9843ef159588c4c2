package ai

import (
	"context"

	"golang.org/x/time/rate"

	"hermes/pkg/errors"
)

// Limiter throttles provider calls to the configured requests-per-minute.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a limiter with a burst of 10% of the per-minute rate.
func NewLimiter(name string, requestsPerMinute int) *Limiter {
	rps := float64(requestsPerMinute) / 60.0

	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait blocks until the limiter admits the request or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(errors.ErrRateLimited, "provider %s: %v", l.name, err)
	}
	return nil
}

// Allow reports whether a request may proceed without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
