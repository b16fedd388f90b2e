package memcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowCountsWithinWindow(t *testing.T) {
	w := NewSlidingWindow(time.Minute)
	now := time.Now()

	assert.Equal(t, 1, w.Hit("1.2.3.4", now))
	assert.Equal(t, 2, w.Hit("1.2.3.4", now.Add(time.Second)))
	assert.Equal(t, 1, w.Hit("5.6.7.8", now), "keys are independent")
	assert.Equal(t, 2, w.Count("1.2.3.4", now.Add(2*time.Second)))
}

func TestSlidingWindowExpiresOldHits(t *testing.T) {
	w := NewSlidingWindow(time.Minute)
	now := time.Now()

	w.Hit("1.2.3.4", now)
	w.Hit("1.2.3.4", now.Add(time.Second))

	// Both hits fall out once the window slides past them.
	assert.Equal(t, 1, w.Hit("1.2.3.4", now.Add(2*time.Minute)))
	assert.Equal(t, 0, w.Count("1.2.3.4", now.Add(5*time.Minute)))
}

func TestSlidingWindowReset(t *testing.T) {
	w := NewSlidingWindow(time.Minute)
	now := time.Now()

	w.Hit("1.2.3.4", now)
	w.Reset("1.2.3.4")
	assert.Equal(t, 0, w.Count("1.2.3.4", now))
	assert.Equal(t, 1, w.Hit("1.2.3.4", now))
}
