package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type limitedReasoner struct {
	next    Reasoner
	limiter *rate.Limiter
}

// WithRateLimit wraps r with a token bucket allowing perSecond calls with the
// given burst. A non-positive rate returns r unchanged.
func WithRateLimit(r Reasoner, perSecond float64, burst int) Reasoner {
	if perSecond <= 0 {
		return r
	}
	if burst <= 0 {
		burst = 1
	}
	return &limitedReasoner{next: r, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *limitedReasoner) Complete(ctx context.Context, turns []Turn, opts Options) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for reasoning rate limit: %w", err)
	}
	return l.next.Complete(ctx, turns, opts)
}
