package memcache

import (
	"sync"
	"time"
)

// SlidingWindow tracks request timestamps per key inside a fixed window.
// Process-local; in a multi-instance deployment use the redis-backed store
// instead or the limit becomes per-instance.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   map[string][]time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

// Hit records one request for key and returns how many requests remain in
// the window, including this one. Expired entries are pruned lazily.
func (w *SlidingWindow) Hit(key string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.window)
	kept := w.hits[key][:0]
	for _, t := range w.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	w.hits[key] = kept
	return len(kept)
}

// Count returns the current in-window count without recording a hit.
func (w *SlidingWindow) Count(key string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.window)
	n := 0
	for _, t := range w.hits[key] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

// Reset drops all state for key.
func (w *SlidingWindow) Reset(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.hits, key)
}
