// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

import (
	"context"

	"github.com/techgopal/ultrafast-client/ratelimit"
)

// A Gate decides whether a request attempt against a host may proceed.
// The client consults every gate before any network activity; the
// first gate to return an error aborts the attempt, and gate errors
// are terminal (never retried).
//
// Admit may block, for example while waiting in a rate limiter's
// queue, and must honor ctx cancellation while doing so.
type Gate interface {
	Middleware
	Admit(ctx context.Context, host string) error
}

// A RateLimitGate adapts a ratelimit.Limiter into a middleware gate.
type RateLimitGate struct {
	name    string
	limiter *ratelimit.Limiter
}

// NewRateLimitGate returns a gate middleware enforcing the given
// limiter. It panics if limiter is nil.
func NewRateLimitGate(name string, limiter *ratelimit.Limiter) *RateLimitGate {
	if limiter == nil {
		panic("ultrafast/middleware: nil limiter")
	}
	return &RateLimitGate{name: name, limiter: limiter}
}

// Name returns the gate's middleware name.
func (g *RateLimitGate) Name() string { return g.name }

// Admit admits one attempt against host, parking the caller until the
// limiter opens capacity when queueing is enabled. It returns the
// limiter's RateLimitError or QueueFullError when the attempt cannot
// be admitted, or ctx.Err() if ctx is done first.
func (g *RateLimitGate) Admit(ctx context.Context, host string) error {
	return g.limiter.Wait(ctx, host)
}

// Limiter returns the underlying limiter, for status reporting.
func (g *RateLimitGate) Limiter() *ratelimit.Limiter { return g.limiter }
