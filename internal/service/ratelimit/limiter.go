package ratelimit

import (
	"sync"
	"time"
)

// idleAfter is how long a user's bucket may sit untouched before it is
// dropped from the map during a sweep.
const idleAfter = 10 * time.Minute

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-user token bucket. Capacity and refill rate are fixed at
// construction so every user shares the same policy.
type Limiter struct {
	capacity float64
	refill   float64 // tokens per second

	mu      sync.Mutex
	buckets map[string]*bucket
	sweepAt time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	return &Limiter{
		capacity: capacity,
		refill:   refillPerSec,
		buckets:  make(map[string]*bucket),
		sweepAt:  time.Now().Add(idleAfter),
	}
}

// Allow consumes one token for userID, returning false when the bucket is
// empty. New users start with a full bucket.
func (l *Limiter) Allow(userID string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		l.sweep(now)
	}

	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.buckets[userID] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets idle long enough to have refilled to capacity anyway.
// Caller holds l.mu.
func (l *Limiter) sweep(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.last) > idleAfter {
			delete(l.buckets, id)
		}
	}
	l.sweepAt = now.Add(idleAfter)
}
