package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tbourn/go-cartoon-bot/internal/config"
	"github.com/tbourn/go-cartoon-bot/internal/observability"
)

// ActionClass groups inbound events that share a throttle interval.
type ActionClass string

const (
	ClassRecommend ActionClass = "recommend"
	ClassGeneral   ActionClass = "general"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ActionThrottle is per-user flood control: one token bucket (burst 1) per
// user and class, refilled once per class interval. Idle buckets are evicted
// during lookups, so memory stays bounded by the number of recently active
// users.
//
// Safe for concurrent use.
type ActionThrottle struct {
	intervals map[ActionClass]time.Duration
	idleTTL   time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups uint64
	now     func() time.Time
}

// NewActionThrottle builds a throttle from configuration. A class with a
// non-positive interval is never throttled.
func NewActionThrottle(cfg config.ThrottleConfig) *ActionThrottle {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ActionThrottle{
		intervals: map[ActionClass]time.Duration{
			ClassRecommend: cfg.RecommendInterval,
			ClassGeneral:   cfg.GeneralInterval,
		},
		idleTTL: ttl,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow reports whether userID may act in class now, and takes the token.
func (t *ActionThrottle) Allow(userID string, class ActionClass) bool {
	every := t.intervals[class]
	if every <= 0 {
		return true
	}
	now := t.now()
	key := string(class) + ":" + userID

	t.mu.Lock()
	t.lookups++
	if t.lookups >= 1000 {
		t.evictLocked(now)
		t.lookups = 0
	}
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), 1)}
		t.buckets[key] = b
	}
	b.lastSeen = now
	t.mu.Unlock()

	if b.limiter.AllowN(now, 1) {
		return true
	}
	observability.ThrottledEvents.WithLabelValues(string(class)).Inc()
	return false
}

// Len returns the number of live buckets.
func (t *ActionThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// Evict drops buckets idle for at least the idle TTL.
func (t *ActionThrottle) Evict() {
	t.mu.Lock()
	t.evictLocked(t.now())
	t.mu.Unlock()
}

func (t *ActionThrottle) evictLocked(now time.Time) {
	for k, b := range t.buckets {
		if now.Sub(b.lastSeen) >= t.idleTTL {
			delete(t.buckets, k)
		}
	}
}
