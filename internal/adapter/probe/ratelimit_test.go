package probe

import (
	"context"
	"testing"
	"time"
)

func TestSourceLimiterBurst(t *testing.T) {
	limiter := NewSourceLimiter(map[string]Budget{
		"github": {PerMinute: 30, Burst: 3},
	})

	for i := 0; i < 3; i++ {
		if !limiter.Allow("github") {
			t.Fatalf("request %d should fit inside the burst", i)
		}
	}
	if limiter.Allow("github") {
		t.Error("fourth request should exceed the burst")
	}
}

func TestSourceLimiterSharedBudget(t *testing.T) {
	// Concurrent scans draw from one budget; a second caller does not
	// get a fresh allowance.
	limiter := NewSourceLimiter(map[string]Budget{
		"github": {PerMinute: 1, Burst: 1},
	})

	if !limiter.Allow("github") {
		t.Fatal("first request should be admitted")
	}
	if limiter.Allow("github") {
		t.Error("second request should be throttled regardless of caller")
	}
}

func TestSourceLimiterUnbudgetedSource(t *testing.T) {
	limiter := NewSourceLimiter(DefaultBudgets())

	for i := 0; i < 100; i++ {
		if !limiter.Allow("no-such-source") {
			t.Fatal("sources without a budget must not be limited")
		}
	}
}

func TestSourceLimiterWaitHonorsContext(t *testing.T) {
	limiter := NewSourceLimiter(map[string]Budget{
		"github": {PerMinute: 1, Burst: 1},
	})

	if err := limiter.Wait(context.Background(), "github"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "github"); err == nil {
		t.Error("exhausted budget should fail once the context expires")
	}
}
