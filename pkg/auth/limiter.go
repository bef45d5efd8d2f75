package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRPS   = 5
	defaultBurst = 10

	// limiterCap bounds the pool; once full, entries idle past
	// limiterIdle are swept before a new one is added.
	limiterCap  = 1024
	limiterIdle = time.Minute
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per caller key and evicts idle
// entries so the map stays bounded.
type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*limiterEntry
	rps   rate.Limit
	burst int
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &limiterPool{
		m:     make(map[string]*limiterEntry),
		rps:   rate.Limit(rps),
		burst: burst,
	}
}

// Allow reports whether the caller identified by key may proceed.
func (p *limiterPool) Allow(key string) bool {
	now := time.Now()
	p.mu.Lock()
	e, ok := p.m[key]
	if !ok {
		if len(p.m) >= limiterCap {
			p.sweepLocked(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(p.rps, p.burst)}
		p.m[key] = e
	}
	e.lastSeen = now
	p.mu.Unlock()
	return e.lim.Allow()
}

func (p *limiterPool) sweepLocked(now time.Time) {
	for k, e := range p.m {
		if now.Sub(e.lastSeen) > limiterIdle {
			delete(p.m, k)
		}
	}
}
