package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func TestLimiterSpacesSequentialWaits(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewLimiter(Config{MinInterval: 5 * time.Second}, clock)

	begin := clock.Now()
	starts := make([]time.Time, 0, 4)
	for i := 0; i < 4; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
		starts = append(starts, clock.Now())
	}

	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		if gap < 5*time.Second {
			t.Fatalf("gap %d is %s, want >= 5s", i, gap)
		}
	}
	if total := starts[len(starts)-1].Sub(begin); total < 15*time.Second {
		t.Fatalf("4 waits spanned %s, want >= 15s", total)
	}
}

func TestLimiterFirstWaitDoesNotBlock(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewLimiter(Config{MinInterval: 8 * time.Second}, clock)

	before := clock.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !clock.Now().Equal(before) {
		t.Fatalf("first wait slept %s, want 0", clock.Now().Sub(before))
	}
}

func TestLimiterPenalizeAppliesCooldown(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewLimiter(Config{MinInterval: time.Second, Cooldown: 30 * time.Second}, clock)

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	limiter.Penalize()

	before := clock.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("wait after penalize: %v", err)
	}
	if gap := clock.Now().Sub(before); gap < 30*time.Second {
		t.Fatalf("cooldown gap is %s, want >= 30s", gap)
	}
}

func TestLimiterPenalizeNeverShortensWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := NewLimiter(Config{MinInterval: time.Minute, Cooldown: time.Second}, clock)

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	limiter.Penalize()

	before := clock.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if gap := clock.Now().Sub(before); gap < time.Minute {
		t.Fatalf("gap is %s, want the longer min interval to win", gap)
	}
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(Config{MinInterval: time.Hour}, SystemClock())
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("want context error from canceled wait")
	}
}
