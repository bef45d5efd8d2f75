package auth

import (
	"fmt"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiterPoolDefaults(t *testing.T) {
	p := newLimiterPool(0, 0)
	if p.rps != rate.Limit(defaultRPS) || p.burst != defaultBurst {
		t.Fatalf("defaults not applied: rps=%v burst=%d", p.rps, p.burst)
	}
	p = newLimiterPool(2, 3)
	if p.rps != 2 || p.burst != 3 {
		t.Fatalf("configured values ignored: rps=%v burst=%d", p.rps, p.burst)
	}
}

func TestLimiterPoolSharesBucketPerKey(t *testing.T) {
	p := newLimiterPool(1, 1)
	if !p.Allow("k") {
		t.Fatalf("first call should pass")
	}
	if p.Allow("k") {
		t.Fatalf("burst of 1 should reject the second call")
	}
	if !p.Allow("other") {
		t.Fatalf("distinct key should have its own bucket")
	}
}

func TestLimiterPoolEvictsIdle(t *testing.T) {
	p := newLimiterPool(1, 1)
	for i := 0; i < limiterCap; i++ {
		p.Allow(fmt.Sprintf("k%d", i))
	}
	stale := time.Now().Add(-2 * limiterIdle)
	p.mu.Lock()
	for _, e := range p.m {
		e.lastSeen = stale
	}
	p.mu.Unlock()

	p.Allow("fresh")
	p.mu.Lock()
	n := len(p.m)
	p.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected idle entries swept, have %d", n)
	}
}
