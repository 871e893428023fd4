// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package middleware provides a bounded, kind-partitioned middleware
// stack for extending HTTP request plan executions.
//
// A Stack holds middleware of six kinds, each with its own contract and
// its own place in the attempt lifecycle:
//
//   - RateLimit (Gate): admits or rejects an attempt before any network
//     activity.
//   - Headers (HeaderInjector): contributes default request headers,
//     merged absent-only so caller headers always win.
//   - Logging (Logger): observes the request before it is sent and the
//     response or error afterward.
//   - Retry (RetryAdvisor): supplies the retry policy the client uses
//     for the execution.
//   - Metrics (Recorder): accumulates attempt counts and latencies.
//   - Interceptor: receives every lifecycle Event, in the manner of a
//     classic event handler chain.
//
// Middleware are named so they can be removed later, and each kind is
// capped (DefaultKindLimit, adjustable with WithKindLimit) so a
// misbehaving embedder cannot grow the stack without bound; Add reports
// ErrStackFull once a kind is at capacity. Within a kind, middleware
// run in registration order.
//
// Logging, metrics and interceptor middleware are failure-isolated: a
// panic in one of them is recovered, optionally reported to the stack's
// own logger (WithLogger), and never aborts the request. Gates are not
// isolated, since failing the attempt is exactly their job.
//
// The zero value of Stack is an empty stack ready for use. Stage
// methods hold the stack's read lock while middleware run, so a
// middleware must not call Add or Remove from inside a callback.
package middleware
