package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time so limiter behavior is testable without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
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

func SystemClock() Clock {
	return systemClock{}
}

type Config struct {
	// MinInterval is the minimum spacing between request starts.
	MinInterval time.Duration
	// Cooldown is applied after the upstream reports rate limiting.
	Cooldown time.Duration
}

// Limiter serializes request starts against a single upstream. Callers
// Wait before each request and Penalize when the upstream says slow down.
type Limiter struct {
	mu          sync.Mutex
	clock       Clock
	minInterval time.Duration
	cooldown    time.Duration
	nextStart   time.Time
}

func NewLimiter(cfg Config, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock()
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	return &Limiter{
		clock:       clock,
		minInterval: cfg.MinInterval,
		cooldown:    cfg.Cooldown,
	}
}

// Wait blocks until the caller may start a request. N sequential waiters
// with interval I are spaced so the whole sequence spans at least (N-1)*I.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}

	l.mu.Lock()
	now := l.clock.Now()
	start := l.nextStart
	if start.Before(now) {
		start = now
	}
	l.nextStart = start.Add(l.minInterval)
	l.mu.Unlock()

	return l.clock.Sleep(ctx, start.Sub(now))
}

// Penalize pushes the next allowed start out by the configured cooldown.
func (l *Limiter) Penalize() {
	if l == nil || l.cooldown <= 0 {
		return
	}

	l.mu.Lock()
	candidate := l.clock.Now().Add(l.cooldown)
	if candidate.After(l.nextStart) {
		l.nextStart = candidate
	}
	l.mu.Unlock()
}

// MinInterval reports the configured spacing.
func (l *Limiter) MinInterval() time.Duration {
	if l == nil {
		return 0
	}
	return l.minInterval
}
