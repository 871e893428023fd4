// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package ratelimit

import (
	"sync"
	"time"
)

// A state is one admission domain: the whole limiter in global scope,
// or one host in per-host scope. Implementations serialize their own
// access so the Limiter can hold its host map lock briefly.
type state interface {
	// admit consumes capacity for one request if any is available at
	// instant now, reporting whether it did.
	admit(now time.Time) bool
	// until reports how long after now capacity next becomes
	// available. It must not mutate the state. Zero means a request
	// would be admitted now.
	until(now time.Time) time.Duration
	// reset restores the state to full capacity.
	reset(now time.Time)
}

func newState(c Config, now time.Time) state {
	switch c.Algorithm {
	case SlidingWindow:
		return &slidingWindow{
			window: c.WindowSize,
			limit:  c.windowLimit(),
		}
	case FixedWindow:
		return &fixedWindow{
			window:      c.WindowSize,
			limit:       c.windowLimit(),
			windowStart: now,
		}
	default:
		return &tokenBucket{
			rate:   c.RequestsPerSecond,
			max:    c.burst(),
			tokens: c.burst(),
			last:   now,
		}
	}
}

// tokenBucket refills continuously at rate tokens per second up to
// max, and admits a request by spending one token.
type tokenBucket struct {
	mu     sync.Mutex
	rate   float64
	max    float64
	tokens float64
	last   time.Time
}

func (b *tokenBucket) refill(now time.Time) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.max, b.tokens+elapsed*b.rate)
	}
	b.last = now
}

func (b *tokenBucket) admit(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (b *tokenBucket) until(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	tokens := b.tokens
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		tokens = min(b.max, tokens+elapsed*b.rate)
	}
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / b.rate * float64(time.Second))
}

func (b *tokenBucket) reset(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.max
	b.last = now
}

// slidingWindow keeps the timestamp of every admission still inside
// the window and admits while fewer than limit remain.
type slidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	stamps []time.Time
}

// evict drops timestamps that have aged out of the window ending at
// now. Timestamps are appended in order, so the survivors are a
// suffix.
func (w *slidingWindow) evict(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

func (w *slidingWindow) admit(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(now)
	if len(w.stamps) < w.limit {
		w.stamps = append(w.stamps, now)
		return true
	}
	return false
}

func (w *slidingWindow) until(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(now)
	if len(w.stamps) < w.limit {
		return 0
	}
	// Capacity opens when the oldest admission leaves the window.
	return w.stamps[0].Add(w.window).Sub(now)
}

func (w *slidingWindow) reset(time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamps = w.stamps[:0]
}

// fixedWindow counts admissions per wall-clock window and starts a
// fresh count when the window rolls over.
type fixedWindow struct {
	mu          sync.Mutex
	window      time.Duration
	limit       int
	windowStart time.Time
	count       int
}

// roll advances to the window containing now if the current one has
// ended.
func (w *fixedWindow) roll(now time.Time) {
	if now.Sub(w.windowStart) >= w.window {
		w.windowStart = now
		w.count = 0
	}
}

func (w *fixedWindow) admit(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roll(now)
	if w.count < w.limit {
		w.count++
		return true
	}
	return false
}

func (w *fixedWindow) until(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if now.Sub(w.windowStart) >= w.window || w.count < w.limit {
		return 0
	}
	return w.windowStart.Add(w.window).Sub(now)
}

func (w *fixedWindow) reset(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.windowStart = now
	w.count = 0
}
