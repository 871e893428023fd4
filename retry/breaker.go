// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import "sync"

// Default breaker parameters. A breaker constructed with these values
// opens once more than 16 of the client's last 20 attempts failed.
const (
	DefaultBreakerWindow    = 20
	DefaultBreakerThreshold = 0.8
)

// A Breaker suppresses retries once the failure rate over a window of
// recent attempts crosses a threshold, so a client does not amplify
// load against a dependency that is already down. It records the
// outcome of every attempt a client makes, across all of the client's
// executions.
//
// A Breaker renders no verdict until a full window of outcomes has
// been recorded: early failures on a fresh client never suppress
// retries. Once the window is full, each new outcome evicts the
// oldest.
//
// Breaker is safe for concurrent use by multiple goroutines.
type Breaker struct {
	threshold float64

	mu       sync.Mutex
	outcomes []bool // ring buffer, true marks a failed attempt
	next     int
	filled   bool
	failures int
}

// NewBreaker constructs a Breaker that trips when the failure rate
// over the last window attempts exceeds threshold. Window must be
// positive and threshold must be in (0, 1].
func NewBreaker(window int, threshold float64) *Breaker {
	if window < 1 {
		panic("ultrafast/retry: window must be positive")
	}
	if threshold <= 0 || threshold > 1 {
		panic("ultrafast/retry: threshold must be in (0, 1]")
	}
	return &Breaker{
		threshold: threshold,
		outcomes:  make([]bool, window),
	}
}

// DefaultBreaker returns a Breaker using DefaultBreakerWindow and
// DefaultBreakerThreshold.
func DefaultBreaker() *Breaker {
	return NewBreaker(DefaultBreakerWindow, DefaultBreakerThreshold)
}

// Record adds the outcome of one completed attempt to the window,
// evicting the oldest recorded outcome once the window is full.
func (b *Breaker) Record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filled && b.outcomes[b.next] {
		b.failures--
	}
	b.outcomes[b.next] = failed
	if failed {
		b.failures++
	}
	b.next++
	if b.next == len(b.outcomes) {
		b.next = 0
		b.filled = true
	}
}

// Tripped reports whether the breaker is open: a full window of
// outcomes has been recorded, and its failure rate exceeds the
// breaker's threshold.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filled && float64(b.failures)/float64(len(b.outcomes)) > b.threshold
}

// ErrorRate returns the failure fraction over the recorded outcomes,
// in [0, 1]. It returns 0 before any outcome has been recorded.
func (b *Breaker) ErrorRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.next
	if b.filled {
		n = len(b.outcomes)
	}
	if n == 0 {
		return 0
	}
	return float64(b.failures) / float64(n)
}

// Window returns the number of recent attempts the breaker computes
// its failure rate over.
func (b *Breaker) Window() int {
	return len(b.outcomes)
}

// Reset discards all recorded outcomes, closing the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.outcomes {
		b.outcomes[i] = false
	}
	b.next = 0
	b.filled = false
	b.failures = 0
}
