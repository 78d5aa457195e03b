package probe

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Budget is a per-source rate allowance in requests per minute.
type Budget struct {
	PerMinute float64
	Burst     int
}

// DefaultBudgets mirrors the published limits of the upstream APIs.
// GitHub code search is the tightest at 30 requests per minute.
func DefaultBudgets() map[string]Budget {
	return map[string]Budget{
		"github":       {PerMinute: 30, Burst: 5},
		"jobboard":     {PerMinute: 60, Burst: 10},
		"hackernews":   {PerMinute: 60, Burst: 10},
		"npm-registry": {PerMinute: 120, Burst: 20},
	}
}

// SourceLimiter is the single process-wide rate budget, shared by
// every probe across every concurrent subject scan in a batch run.
// Access is synchronized: probes for different subjects run at the
// same time and must not jointly exceed a source's published limit.
type SourceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	budgets  map[string]Budget
}

func NewSourceLimiter(budgets map[string]Budget) *SourceLimiter {
	return &SourceLimiter{
		limiters: make(map[string]*rate.Limiter),
		budgets:  budgets,
	}
}

// Wait blocks until the source's budget admits one more request, or
// the context expires. Sources without a configured budget are not
// limited.
func (l *SourceLimiter) Wait(ctx context.Context, sourceID string) error {
	lim := l.limiter(sourceID)
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

// Allow reports whether one request fits the budget right now without
// blocking.
func (l *SourceLimiter) Allow(sourceID string) bool {
	lim := l.limiter(sourceID)
	if lim == nil {
		return true
	}
	return lim.Allow()
}

func (l *SourceLimiter) limiter(sourceID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[sourceID]; ok {
		return lim
	}
	budget, ok := l.budgets[sourceID]
	if !ok {
		return nil
	}
	burst := budget.Burst
	if burst <= 0 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(budget.PerMinute/60.0), burst)
	l.limiters[sourceID] = lim
	return lim
}
