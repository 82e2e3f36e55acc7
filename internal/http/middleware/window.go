package middleware

import (
	"sync"
	"time"
)

// SlidingWindow admits at most limit requests per key within any span of period.
// Each key keeps the timestamps of its admitted requests, oldest first.
type SlidingWindow struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	period time.Duration
	now    func() time.Time
}

func NewSlidingWindow(limit int, period time.Duration) *SlidingWindow {
	if limit < 1 {
		limit = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	return &SlidingWindow{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (w *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	w.now = now
	return w
}

func (w *SlidingWindow) Period() time.Duration { return w.period }

// Take records one request for key when the window has room. Count is the
// number of requests inside the window after the decision.
func (w *SlidingWindow) Take(key string) Decision {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)

	hits := w.hits[key]
	d := Decision{Limit: w.limit}
	if len(hits) < w.limit {
		hits = append(hits, now)
		w.hits[key] = hits
		d.Allowed = true
	}
	d.Count = len(hits)
	d.Remaining = w.limit - len(hits)
	d.Reset = hits[0].Add(w.period)
	if !d.Allowed {
		d.RetryAfter = d.Reset.Sub(now)
	}
	return d
}

// prune drops timestamps older than now-period and forgets keys left empty.
func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.period)
	for k, hits := range w.hits {
		i := 0
		for i < len(hits) && !hits[i].After(cutoff) {
			i++
		}
		switch {
		case i == len(hits):
			delete(w.hits, k)
		case i > 0:
			w.hits[k] = append(hits[:0:0], hits[i:]...)
		}
	}
}
