package sentinel

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// CallLimiter paces LLM calls per colony with a token bucket, trimmed from
// the teacher's AdaptiveRateLimiter to a single process-local knob: Backoff
// halves a colony's rate and Probe raises it by 10%. Sentinel calls Backoff
// on critical cost, security and runaway alerts; nothing in Sentinel calls
// Probe. It does not react to provider 429s.
type CallLimiter struct {
	mu sync.Mutex

	limiters map[string]*rate.Limiter

	initialRPS float64
	minRPS     float64
	maxRPS     float64
}

// NewCallLimiter constructs a CallLimiter with a per-colony requests-per-second
// budget. maxRPS is clamped to be at least initialRPS.
func NewCallLimiter(initialRPS, maxRPS float64) *CallLimiter {
	if initialRPS <= 0 {
		initialRPS = 1
	}
	if maxRPS < initialRPS {
		maxRPS = initialRPS
	}
	minRPS := initialRPS * 0.1
	if minRPS < 0.01 {
		minRPS = 0.01
	}
	return &CallLimiter{
		limiters:   map[string]*rate.Limiter{},
		initialRPS: initialRPS,
		minRPS:     minRPS,
		maxRPS:     maxRPS,
	}
}

func (c *CallLimiter) limiterFor(colonyID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[colonyID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.initialRPS), 1)
		c.limiters[colonyID] = l
	}
	return l
}

// Wait blocks until a colony is permitted to make another LLM call.
func (c *CallLimiter) Wait(ctx context.Context, colonyID string) error {
	return c.limiterFor(colonyID).Wait(ctx)
}

// Backoff halves a colony's budget, never going below minRPS. Sentinel calls
// this when it raises a critical cost, security or runaway alert for that colony.
func (c *CallLimiter) Backoff(colonyID string) {
	l := c.limiterFor(colonyID)
	next := float64(l.Limit()) * 0.5
	if next < c.minRPS {
		next = c.minRPS
	}
	l.SetLimit(rate.Limit(next))
}

// Probe nudges a colony's budget back toward maxRPS, capped there.
func (c *CallLimiter) Probe(colonyID string) {
	l := c.limiterFor(colonyID)
	next := float64(l.Limit()) * 1.1
	if next > c.maxRPS {
		next = c.maxRPS
	}
	l.SetLimit(rate.Limit(next))
}
