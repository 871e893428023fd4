// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package stats collects per-host request statistics for an HTTP
// client: request and error counts, bytes sent and received, rolling
// average latency, and the protocol that served the host. A Store is
// safe for concurrent use and is designed to sit on the hot path of a
// request loop, so recording is cheap: process-wide totals live on
// atomic counters and per-host records take a short mutex.
//
// Statistics are observational. A failed or missing record never
// affects request execution.
package stats
