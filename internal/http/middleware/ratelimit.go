package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"apicourse/internal/apperr"
)

// Decision is the outcome of taking one request from a client's budget.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Count      int           `json:"count,omitempty"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	Reset      time.Time     `json:"reset"`
	RetryAfter time.Duration `json:"-"`
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps a token bucket per key. A full bucket holds limit tokens and
// refills completely over period.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     int
	period    time.Duration
	every     time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		period:  period,
		every:   period / time.Duration(limit),
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

func (l *RateLimiter) Limit() int { return l.limit }
func (l *RateLimiter) Period() time.Duration { return l.period }

// Take spends one token for key.
func (l *RateLimiter) Take(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(l.every), l.limit)}
		l.buckets[key] = b
	}
	b.seen = now

	allowed := b.lim.AllowN(now, 1)
	tokens := b.lim.TokensAt(now)
	d := Decision{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: max(int(math.Floor(tokens)), 0),
		Reset:     now.Add(time.Duration((float64(l.limit) - tokens) * float64(l.every))),
	}
	if !allowed {
		d.RetryAfter = time.Duration((1 - tokens) * float64(l.every))
	}
	return d
}

// sweep drops buckets idle for longer than a full refill; they would be full anyway.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.period {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.period {
			delete(l.buckets, k)
		}
	}
}

// RateLimit rejects clients over budget with 429 and reports the budget in
// X-RateLimit-* headers. key defaults to the client IP.
func RateLimit(l *RateLimiter, key func(*fiber.Ctx) string) fiber.Handler {
	if key == nil {
		key = func(c *fiber.Ctx) string { return c.IP() }
	}
	return func(c *fiber.Ctx) error {
		d := l.Take(key(c))
		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
		if !d.Allowed {
			return apperr.RateLimited(l.limit, l.period, d.RetryAfter)
		}
		return c.Next()
	}
}
