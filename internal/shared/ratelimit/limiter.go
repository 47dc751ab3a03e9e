package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Rule is a token bucket refilled at Rate tokens per second up to Burst.
type Rule struct {
	Rate  float64
	Burst int
}

// PerMinute returns a rule allowing n requests per minute with a burst of n.
func PerMinute(n int) Rule {
	if n <= 0 {
		return Rule{}
	}
	return Rule{Rate: float64(n) / 60.0, Burst: n}
}

// Enabled reports whether the rule limits anything.
func (r Rule) Enabled() bool {
	return r.Rate > 0 && r.Burst > 0
}

// Limiter keeps one token bucket per key. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

func New(now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     now,
	}
}

// Allow consumes a token for key. When none is available it returns false
// and how long until one will be.
func (l *Limiter) Allow(key string, rule Rule) (bool, time.Duration) {
	if l == nil || !rule.Enabled() {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens: float64(rule.Burst),
			last:   now,
		}
		l.buckets[key] = b
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(float64(rule.Burst), b.tokens+elapsed*rule.Rate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens -= 1
		return true, 0
	}
	needed := 1 - b.tokens
	waitSec := needed / rule.Rate
	if waitSec < 0 {
		waitSec = 0
	}
	return false, time.Duration(math.Ceil(waitSec*1000.0)) * time.Millisecond
}

// Prune drops buckets idle for longer than maxIdle.
func (l *Limiter) Prune(maxIdle time.Duration) int {
	if l == nil {
		return 0
	}
	cutoff := l.now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, b := range l.buckets {
		if b.last.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// RunJanitor prunes idle buckets every interval until ctx is done.
func (l *Limiter) RunJanitor(ctx context.Context, every, maxIdle time.Duration) {
	if l == nil || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune(maxIdle)
		}
	}
}
