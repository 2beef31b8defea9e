package limiter

import (
	"context"
	"sync"
	"time"
)

type budgetKey struct {
	client   string
	endpoint string
}

type budget struct {
	start  time.Time
	length time.Duration
	count  int
}

func (b *budget) expired(now time.Time) bool {
	return !now.Before(b.start.Add(b.length))
}

// MemoryOption customises a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// MemoryLimiter keeps budgets in process memory. A single mutex makes the
// check and increment one step for every pair.
type MemoryLimiter struct {
	rules Rules
	now   func() time.Time

	mu      sync.Mutex
	budgets map[budgetKey]*budget
}

// NewMemoryLimiter validates rules and returns an empty limiter.
func NewMemoryLimiter(rules Rules, opts ...MemoryOption) (*MemoryLimiter, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	l := &MemoryLimiter{
		rules:   rules,
		now:     time.Now,
		budgets: make(map[budgetKey]*budget),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Admit implements Limiter.
func (l *MemoryLimiter) Admit(_ context.Context, clientKey, endpointKey string) (Decision, error) {
	rule, ok := l.rules[endpointKey]
	if !ok {
		return Decision{}, unknownEndpoint(endpointKey)
	}
	now := l.now()
	key := budgetKey{client: clientKey, endpoint: endpointKey}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.budgets[key]
	if b == nil || b.expired(now) {
		b = &budget{start: now, length: rule.Window}
		l.budgets[key] = b
	}
	reset := b.start.Add(b.length)
	decision := Decision{Limit: rule.Limit, ResetAt: reset}
	if b.count >= rule.Limit {
		decision.RetryAfter = reset.Sub(now)
		return decision, nil
	}
	b.count++
	decision.Allowed = true
	decision.Remaining = rule.Limit - b.count
	return decision, nil
}

// Evict drops every budget whose window ended at or before now and returns
// how many were removed.
func (l *MemoryLimiter) Evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, b := range l.budgets {
		if b.expired(now) {
			delete(l.budgets, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked budgets.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.budgets)
}

// Run evicts expired budgets every interval until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Evict(l.now())
		}
	}
}
