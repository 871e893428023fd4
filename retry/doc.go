// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides flexible policies for retrying failed attempts
// during an HTTP request plan execution, and how long to wait before
// retrying.
//
// The interface Policy defines a retry Policy. A Policy instance can be
// constructed using NewPolicy by providing a decision-maker, Decider,
// and a wait time calculator, Waiter. Both Decider and Waiter have
// constructors for common use cases, so that a useful policy can be
// quickly assembled:
//
//	decider := retry.Times(3).
//	               And(retry.Before(5 * time.Second)).
//	               And(retry.StatusCode(500).Or(retry.TransientErr))
//	waiter := retry.NewBackoffWaiter(100*time.Millisecond, 2*time.Second, 2.0, retry.JitterDefault)
//	policy := retry.NewPolicy(decider, waiter)
//
// The preset constructors HighThroughput, CriticalOperations and
// Development return policies pre-tuned for those deployment shapes,
// and DefaultPolicy suits most remaining cases.
//
// If the built-in functionality is insufficient, fully custom retry
// policies can be created via custom implementations of Decider,
// Waiter, or Policy.
//
// Independent of the per-execution Policy, the Breaker type tracks the
// failure rate across a client's recent attempts and reports when
// retrying has become pointless. The client consults its breaker after
// the Decider approves a retry; an open breaker converts the retry
// into an immediate circuit-open failure.
package retry
