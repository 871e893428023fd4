// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package ratelimit

import (
	"math"
	"time"

	uferrors "github.com/techgopal/ultrafast-client/errors"
)

// An Algorithm selects the admission strategy used by a Limiter.
type Algorithm int

const (
	// TokenBucket admits requests while tokens remain in a bucket that
	// refills continuously at the configured rate and is capped at the
	// burst size. It allows short bursts up to the cap while enforcing
	// the rate over time.
	TokenBucket Algorithm = iota
	// SlidingWindow admits at most floor(rate * window) requests
	// within any window-sized span of time by tracking individual
	// admission timestamps. It is the strictest of the three
	// algorithms and the most expensive, costing memory proportional
	// to the limit.
	SlidingWindow
	// FixedWindow admits at most floor(rate * window) requests per
	// wall-clock window, resetting the count when a new window starts.
	// It costs O(1) memory but permits up to twice the limit in a
	// burst that straddles a window boundary.
	FixedWindow
)

var algorithmNames = []string{"token_bucket", "sliding_window", "fixed_window"}

func (a Algorithm) String() string {
	if a < TokenBucket || a > FixedWindow {
		return "unknown"
	}
	return algorithmNames[a]
}

// A Config carries the rate limiter settings. Construct a Limiter from
// a Config with New, which validates it.
type Config struct {
	// Enabled turns rate limiting on. A disabled limiter admits
	// everything.
	Enabled bool

	// Algorithm selects the admission strategy.
	Algorithm Algorithm

	// RequestsPerSecond is the sustained admission rate. Must be
	// positive when the limiter is enabled.
	RequestsPerSecond float64

	// BurstSize caps the token bucket. Zero or negative means
	// ceil(RequestsPerSecond). Ignored by the window algorithms.
	BurstSize int

	// WindowSize is the span used by the window algorithms. Must be
	// positive when the limiter is enabled. Ignored by TokenBucket.
	WindowSize time.Duration

	// PerHost applies an independent limit per target host. When
	// false a single limit is shared by all requests.
	PerHost bool

	// QueueRequests makes Wait park rejected attempts until capacity
	// is available instead of failing immediately.
	QueueRequests bool

	// MaxQueueSize bounds the number of attempts Wait may park at
	// once. Attempts beyond the bound are rejected with a
	// QueueFullError. Must be positive when QueueRequests is set.
	MaxQueueSize int

	// QueueTimeout bounds how long a queued attempt waits for
	// capacity. Zero means wait indefinitely (subject to the caller's
	// context).
	QueueTimeout time.Duration
}

// DefaultConfig returns the default rate limiter settings: a per-host
// token bucket at 10 requests per second with a burst of 10, queueing
// up to 100 waiters for at most 30 seconds each.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		Algorithm:         TokenBucket,
		RequestsPerSecond: 10,
		BurstSize:         10,
		WindowSize:        time.Second,
		PerHost:           true,
		QueueRequests:     true,
		MaxQueueSize:      100,
		QueueTimeout:      30 * time.Second,
	}
}

// Conservative returns settings suited to fragile or strictly
// rate-limited upstreams: 5 requests per second per host with a small
// burst and a short queue.
func Conservative() Config {
	return Config{
		Enabled:           true,
		Algorithm:         TokenBucket,
		RequestsPerSecond: 5,
		BurstSize:         10,
		WindowSize:        time.Second,
		PerHost:           true,
		QueueRequests:     true,
		MaxQueueSize:      50,
		QueueTimeout:      30 * time.Second,
	}
}

// Moderate returns settings suited to typical API consumption: 25
// requests per second per host with a burst of 50.
func Moderate() Config {
	return Config{
		Enabled:           true,
		Algorithm:         TokenBucket,
		RequestsPerSecond: 25,
		BurstSize:         50,
		WindowSize:        time.Second,
		PerHost:           true,
		QueueRequests:     true,
		MaxQueueSize:      100,
		QueueTimeout:      30 * time.Second,
	}
}

// Aggressive returns settings suited to high-throughput ingestion
// against robust upstreams: a global sliding window admitting 100
// requests per second with a large queue.
func Aggressive() Config {
	return Config{
		Enabled:           true,
		Algorithm:         SlidingWindow,
		RequestsPerSecond: 100,
		WindowSize:        time.Second,
		PerHost:           false,
		QueueRequests:     true,
		MaxQueueSize:      500,
		QueueTimeout:      time.Minute,
	}
}

// Disabled returns settings for a limiter that admits everything.
func Disabled() Config {
	return Config{}
}

func (c Config) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerSecond <= 0 {
		return uferrors.Configf("requests_per_second must be positive when rate limiting is enabled, got %v", c.RequestsPerSecond)
	}
	if c.WindowSize <= 0 {
		return uferrors.Configf("window_size must be positive, got %v", c.WindowSize)
	}
	if c.QueueTimeout < 0 {
		return uferrors.Configf("queue_timeout cannot be negative, got %v", c.QueueTimeout)
	}
	if c.QueueRequests && c.MaxQueueSize <= 0 {
		return uferrors.Configf("max_queue_size must be positive when queue_requests is enabled, got %d", c.MaxQueueSize)
	}
	if c.Algorithm < TokenBucket || c.Algorithm > FixedWindow {
		return uferrors.Configf("unknown rate limit algorithm %d", c.Algorithm)
	}
	if c.Algorithm != TokenBucket && c.windowLimit() < 1 {
		return uferrors.Configf("window of %v at %v requests per second admits no requests; increase the rate or the window",
			c.WindowSize, c.RequestsPerSecond)
	}
	return nil
}

// burst returns the effective token bucket capacity.
func (c Config) burst() float64 {
	if c.BurstSize > 0 {
		return float64(c.BurstSize)
	}
	return math.Ceil(c.RequestsPerSecond)
}

// windowLimit returns the number of admissions a window algorithm
// allows per window: floor(rate * window).
func (c Config) windowLimit() int {
	return int(c.RequestsPerSecond * c.WindowSize.Seconds())
}
