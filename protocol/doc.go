// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package protocol selects the HTTP version to attempt per host and
// learns from how each attempt went.
//
// A Negotiator in Auto mode consults a TTL-bounded capability cache,
// probing unknown hosts through a pluggable Detector. Among the
// versions a host supports it scores each one from per-version success
// rates, latencies, and learned preference weights, picking the
// highest score with ties broken toward the newest protocol. Explicit
// (non-Auto) configuration bypasses scoring entirely.
//
// Feedback flows in through RecordOutcome after every attempt: counts
// and cumulative latency accumulate per version, and the version's
// weight is nudged up on fast successes and down on failures, floored
// so no version is ever permanently excluded.
//
// The bundled ALPNDetector performs a real TLS handshake to learn
// whether a host speaks HTTP/2. HTTP/3 detection requires a QUIC
// stack, so it reports HTTP/3 as unavailable; embedders with QUIC
// support supply their own Detector to light it up.
package protocol
