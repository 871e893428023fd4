// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package pool bounds and tracks per-host connection usage.
//
// A Pool hands out permits for one host: acquiring a permit reserves
// one of the host's connection slots, and releasing it returns the
// slot and parks the connection identity for reuse until it idles out.
// A Multiplexer keys pools by host, creating each lazily on first use.
//
// Permits carry feedback methods: Used records a successful attempt's
// latency into the host's running averages and Failed decays the
// host's success rate. Those aggregates feed protocol negotiation and
// status reporting; they never block a caller.
package pool
