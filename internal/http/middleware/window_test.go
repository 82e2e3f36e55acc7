package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindow_HalfwayBurstStaysWithinLimit(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := &clock{t: t0}
	w := NewSlidingWindow(30, time.Minute).WithClock(clk.now)

	allowed := 0
	for range 30 {
		if w.Take("10.0.0.1").Allowed {
			allowed++
		}
	}
	clk.advance(30 * time.Second)
	for range 30 {
		if w.Take("10.0.0.1").Allowed {
			allowed++
		}
	}
	assert.Equal(t, 30, allowed)

	d := w.Take("10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 30, d.Count)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, t0.Add(time.Minute), d.Reset)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
}

func TestSlidingWindow_ReopensAsOldestExpires(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := &clock{t: t0}
	w := NewSlidingWindow(2, time.Minute).WithClock(clk.now)

	first := w.Take("a")
	require.True(t, first.Allowed)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 1, first.Remaining)
	assert.Equal(t, t0.Add(time.Minute), first.Reset)

	clk.advance(20 * time.Second)
	second := w.Take("a")
	require.True(t, second.Allowed)
	assert.Equal(t, 2, second.Count)
	assert.Equal(t, t0.Add(time.Minute), second.Reset, "reset follows the oldest request")

	assert.False(t, w.Take("a").Allowed)
	assert.True(t, w.Take("b").Allowed, "keys have separate windows")

	clk.advance(40 * time.Second)
	d := w.Take("a")
	require.True(t, d.Allowed, "first request left the window")
	assert.Equal(t, 2, d.Count)
	assert.Equal(t, t0.Add(80*time.Second), d.Reset)
	assert.False(t, w.Take("a").Allowed)
}

func TestSlidingWindow_ForgetsIdleKeys(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	w := NewSlidingWindow(5, time.Second).WithClock(clk.now)

	w.Take("old")
	clk.advance(2 * time.Second)
	w.Take("new")

	assert.Len(t, w.hits, 1)
	assert.Contains(t, w.hits, "new")
}
