// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBreaker(t *testing.T) {
	t.Run("invalid window", func(t *testing.T) {
		assert.PanicsWithValue(t, "ultrafast/retry: window must be positive", func() {
			NewBreaker(0, 0.8)
		})
	})
	t.Run("invalid threshold", func(t *testing.T) {
		assert.PanicsWithValue(t, "ultrafast/retry: threshold must be in (0, 1]", func() {
			NewBreaker(20, 0)
		}, "zero")
		assert.PanicsWithValue(t, "ultrafast/retry: threshold must be in (0, 1]", func() {
			NewBreaker(20, 1.1)
		}, "above one")
	})
	t.Run("defaults", func(t *testing.T) {
		b := DefaultBreaker()
		assert.Equal(t, DefaultBreakerWindow, b.Window())
		assert.False(t, b.Tripped())
		assert.Zero(t, b.ErrorRate())
	})
}

func TestBreakerRequiresFullWindow(t *testing.T) {
	// A fresh client's early failures must never suppress retries, no
	// matter how bad the rate looks on a handful of samples.
	b := NewBreaker(20, 0.8)
	for i := 0; i < 19; i++ {
		b.Record(true)
		assert.False(t, b.Tripped(), "after %d failures", i+1)
	}
	assert.Equal(t, 1.0, b.ErrorRate())
	b.Record(true)
	assert.True(t, b.Tripped(), "window full, rate 1.0")
}

func TestBreakerThresholdBoundary(t *testing.T) {
	// Rate exactly at the threshold keeps the breaker closed; it opens
	// only when the threshold is exceeded.
	b := NewBreaker(5, 0.8)
	for i := 0; i < 4; i++ {
		b.Record(true)
	}
	b.Record(false)
	assert.Equal(t, 0.8, b.ErrorRate())
	assert.False(t, b.Tripped())

	b.Record(true) // evicts a failure, still 4/5
	assert.Equal(t, 0.8, b.ErrorRate())
	assert.False(t, b.Tripped())

	// Four more failures flush the success out of the window: 5/5.
	for i := 0; i < 4; i++ {
		b.Record(true)
	}
	assert.Equal(t, 1.0, b.ErrorRate())
	assert.True(t, b.Tripped())
}

func TestBreakerEviction(t *testing.T) {
	b := NewBreaker(3, 0.8)
	b.Record(true)
	b.Record(true)
	b.Record(true)
	assert.True(t, b.Tripped())

	// A success evicts the oldest failure and closes the breaker.
	b.Record(false)
	assert.False(t, b.Tripped())
	assert.InDelta(t, 2.0/3.0, b.ErrorRate(), 1e-9)

	b.Record(false)
	b.Record(false)
	assert.Zero(t, b.ErrorRate())
}

func TestBreakerErrorRate(t *testing.T) {
	b := NewBreaker(4, 0.8)
	assert.Zero(t, b.ErrorRate())
	b.Record(true)
	assert.Equal(t, 1.0, b.ErrorRate())
	b.Record(false)
	assert.Equal(t, 0.5, b.ErrorRate())
	b.Record(true)
	b.Record(false)
	assert.Equal(t, 0.5, b.ErrorRate())
	// Wrap the ring a few times over.
	for i := 0; i < 9; i++ {
		b.Record(i%3 == 0)
	}
	rate := b.ErrorRate()
	assert.GreaterOrEqual(t, rate, 0.0)
	assert.LessOrEqual(t, rate, 1.0)
}

func TestBreakerReset(t *testing.T) {
	b := NewBreaker(3, 0.5)
	b.Record(true)
	b.Record(true)
	b.Record(true)
	assert.True(t, b.Tripped())
	b.Reset()
	assert.False(t, b.Tripped())
	assert.Zero(t, b.ErrorRate())
	// The window must refill before the breaker can trip again.
	b.Record(true)
	b.Record(true)
	assert.False(t, b.Tripped())
	b.Record(true)
	assert.True(t, b.Tripped())
}

func TestBreakerConcurrent(t *testing.T) {
	b := NewBreaker(20, 0.8)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				b.Record(i%2 == 0)
				_ = b.Tripped()
			}
		}(g)
	}
	wg.Wait()
	rate := b.ErrorRate()
	assert.GreaterOrEqual(t, rate, 0.0)
	assert.LessOrEqual(t, rate, 1.0)
}
