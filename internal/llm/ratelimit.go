package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outgoing completion calls.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter with the given requests per second and burst.
// A non-positive rps disables throttling.
func NewLimiter(rps float64, burst int) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until the request can proceed
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Limited wraps a Completer so every call first waits on the limiter.
func Limited(c Completer, l *Limiter) Completer {
	if l == nil {
		return c
	}
	return CompleterFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		if err := l.Wait(ctx); err != nil {
			return "", &ProviderError{Code: ErrRateLimited, Message: "rate limiter wait failed", Err: err}
		}
		return c.Complete(ctx, systemPrompt, userPrompt)
	})
}
