package model

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limit gates every call on limiter, waiting for a token or the context.
func Limit(inv Invoker, limiter *rate.Limiter) Invoker {
	return InvokerFunc(func(ctx context.Context, system, user string, opts Options) (string, error) {
		if err := limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limit: %w", ErrInvokeFailed, err)
		}
		return inv.Invoke(ctx, system, user, opts)
	})
}

// PerMinute returns a limiter allowing n calls per minute with a burst of n.
func PerMinute(n int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

// Timeout bounds every call by d. A non-positive d returns inv unchanged.
func Timeout(inv Invoker, d time.Duration) Invoker {
	if d <= 0 {
		return inv
	}
	return InvokerFunc(func(ctx context.Context, system, user string, opts Options) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return inv.Invoke(ctx, system, user, opts)
	})
}

// New builds the configured provider wrapped with the request limiter and call timeout.
func New(ctx context.Context, cfg *Config) (Invoker, error) {
	var inv Invoker
	switch cfg.Provider {
	case ProviderAgents:
		inv = NewAgents(&cfg.Agent, cfg.Tiers)
	case ProviderGenAI:
		g, err := NewGenAI(ctx, &cfg.GenAI, cfg.Tiers)
		if err != nil {
			return nil, err
		}
		inv = g
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	if cfg.RequestsPerMinute > 0 {
		inv = Limit(inv, PerMinute(cfg.RequestsPerMinute))
	}
	return Timeout(inv, cfg.CallTimeoutDuration()), nil
}
