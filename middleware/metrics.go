// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

import (
	"sync/atomic"
	"time"

	"github.com/techgopal/ultrafast-client/request"
)

// A Recorder accumulates the outcomes of concluded request attempts.
// The client calls Record once per attempt, after the attempt has
// fully concluded (response body read, or error assigned).
type Recorder interface {
	Middleware
	Record(*request.Execution)
}

// Totals is a point-in-time snapshot of a Metrics middleware.
type Totals struct {
	// Requests is the number of attempts recorded.
	Requests uint64
	// Errors is the number of recorded attempts that failed, meaning
	// they produced no usable response or a 5xx status.
	Errors uint64
	// AvgElapsed is the mean attempt duration across all recorded
	// attempts.
	AvgElapsed time.Duration
}

// Metrics is a middleware accumulating attempt totals on atomic
// counters. It is safe for concurrent use.
type Metrics struct {
	name     string
	requests atomic.Uint64
	errors   atomic.Uint64
	elapsed  atomic.Int64
}

// NewMetrics returns an empty metrics middleware.
func NewMetrics(name string) *Metrics {
	return &Metrics{name: name}
}

// Name returns the middleware's name.
func (m *Metrics) Name() string { return m.name }

// Record accumulates one concluded attempt.
func (m *Metrics) Record(e *request.Execution) {
	m.requests.Add(1)
	if e.Failed() {
		m.errors.Add(1)
	}
	m.elapsed.Add(int64(e.AttemptDuration))
}

// Totals returns a snapshot of the accumulated totals.
func (m *Metrics) Totals() Totals {
	t := Totals{
		Requests: m.requests.Load(),
		Errors:   m.errors.Load(),
	}
	if t.Requests > 0 {
		t.AvgElapsed = time.Duration(m.elapsed.Load() / int64(t.Requests))
	}
	return t
}

// Reset zeroes the accumulated totals.
func (m *Metrics) Reset() {
	m.requests.Store(0)
	m.errors.Store(0)
	m.elapsed.Store(0)
}
