// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package ratelimit provides client-side request rate limiting with a
// choice of three algorithms: token bucket (steady rate with bursts),
// sliding window (hard bound over any window-sized span), and fixed
// window (hard bound per wall-clock window, cheaper but leaky across
// window boundaries).
//
// A Limiter applies one algorithm either globally or independently per
// target host. Checks are performed before any network activity: a
// rejected attempt costs nothing but the check itself. Callers choose
// between failing fast (Check) and waiting for capacity through a
// bounded queue (Wait); when the queue is full, new attempts are
// rejected outright rather than queued, keeping the backpressure valve
// itself bounded.
//
// All Limiter methods are safe for concurrent use by multiple
// goroutines.
package ratelimit
