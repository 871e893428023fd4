// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/techgopal/ultrafast-client/request"
)

// A Waiter specifies how long to wait before retrying a failed HTTP request
// attempt.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
//
// The client will not call the Waiter on a retry policy if the policy
// Decider returned false.
//
// This package provides two Waiter implementations, using the constructor
// functions NewFixedWaiter and NewBackoffWaiter. In addition it provides
// a concrete instance suitable for many typical use cases, DefaultWaiter.
type Waiter interface {
	Wait(e *request.Execution) time.Duration
}

// Jitter selects how a backoff waiter perturbs its computed delay, so
// that a fleet of clients retrying against the same dependency does
// not do so in lockstep.
type Jitter int

const (
	// JitterNone leaves the computed delay untouched, making retry
	// timing exactly reproducible.
	JitterNone Jitter = iota
	// JitterDefault perturbs the delay by a random amount of up to
	// ±50%, flooring the result at 1 millisecond.
	JitterDefault
	// JitterTight perturbs the delay by a random amount of up to ±30%,
	// flooring the result at 10 milliseconds. The narrower spread
	// keeps worst-case scheduling more predictable, which suits
	// critical operations.
	JitterTight
)

// DefaultWaiter is the default retry wait policy. It backs off
// exponentially from 1 second, doubling per retry up to a maximum wait
// of 1 minute, with ±50% jitter.
var DefaultWaiter = NewBackoffWaiter(time.Second, time.Minute, 2.0, JitterDefault)

// NewFixedWaiter constructs a Waiter that always returns the given
// duration.
//
// Use NewFixedWaiter to obtain a constant retry backoff.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ *request.Execution) time.Duration {
	return time.Duration(w)
}

// NewBackoffWaiter constructs a Waiter implementing capped exponential
// backoff with a failure streak penalty:
//
//	delay   := min(max, initial * base^attempt * penalty)
//	penalty := 1 + min(2.0, 0.2 * failStreak)
//
// where attempt is the zero-based index of the attempt that just
// finished (e.Attempt, so the first retry waits the initial delay) and
// failStreak is the count of consecutive failed attempts the client
// had observed across all executions when this execution started
// (e.FailStreak). The penalty stretches waits by up to 3x while the
// client is failing persistently, backing further off a dependency
// that is already struggling.
//
// Initial must be positive, max must be at least initial, and base
// must be at least 1.
//
// The jitter mode perturbs the capped delay as described on the Jitter
// constants; pass JitterNone for exact, reproducible delays.
func NewBackoffWaiter(initial, max time.Duration, base float64, jitter Jitter) Waiter {
	if initial < 1 {
		panic("ultrafast/retry: initial must be positive")
	}
	if max < initial {
		panic("ultrafast/retry: max must be at least initial")
	}
	if base < 1 {
		panic("ultrafast/retry: base must be at least 1")
	}
	return &backoffWaiter{
		initial: initial,
		max:     max,
		base:    base,
		jitter:  jitter,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type backoffWaiter struct {
	initial time.Duration
	max     time.Duration
	base    float64
	jitter  Jitter
	lock    sync.Mutex
	rand    *rand.Rand
}

func (w *backoffWaiter) Wait(e *request.Execution) time.Duration {
	d := float64(w.initial) * math.Pow(w.base, float64(e.Attempt))
	d *= 1.0 + math.Min(2.0, 0.2*float64(e.FailStreak))
	if d > float64(w.max) {
		d = float64(w.max)
	}
	switch w.jitter {
	case JitterDefault:
		d = w.perturb(d, 0.5, time.Millisecond)
	case JitterTight:
		d = w.perturb(d, 0.3, 10*time.Millisecond)
	}
	return time.Duration(d)
}

func (w *backoffWaiter) perturb(d, spread float64, floor time.Duration) float64 {
	w.lock.Lock()
	f := 1.0 + spread*(2.0*w.rand.Float64()-1.0)
	w.lock.Unlock()
	d *= f
	if d < float64(floor) {
		d = float64(floor)
	}
	return d
}
