// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import "time"

// HighThroughput returns a retry policy tuned for high-volume traffic
// where a long stall costs more than an occasional surfaced failure.
// It allows up to 2 retries on a transient or connection error or on
// status 429, 503 or 504, with backoff starting at 100 milliseconds,
// growing by 1.5x per retry, and capped at 5 seconds.
func HighThroughput() Policy {
	return NewPolicy(
		Times(2).And(StatusCode(429, 503, 504).Or(TransientErr).Or(ConnectionErrs)),
		NewBackoffWaiter(100*time.Millisecond, 5*time.Second, 1.5, JitterDefault),
	)
}

// CriticalOperations returns a retry policy for requests that must
// succeed if success is at all achievable. It allows up to 5 retries
// on a transient or connection error or on an expanded status set
// that adds 522 (origin connection timed out) and 524 (origin response
// timed out) to the default codes, with backoff growing by 2.5x per
// retry up to 2 minutes. Waits use tight jitter so the worst-case schedule stays
// predictable.
func CriticalOperations() Policy {
	return NewPolicy(
		Times(5).And(StatusCode(408, 429, 500, 502, 503, 504, 522, 524).Or(TransientErr).Or(ConnectionErrs)),
		NewBackoffWaiter(time.Second, 2*time.Minute, 2.5, JitterTight),
	)
}

// Development returns a retry policy for local iteration and tests: a
// single retry on a transient or connection error or a server error
// status, with short unjittered delays so failing cases reproduce
// deterministically.
func Development() Policy {
	return NewPolicy(
		Times(1).And(StatusCode(500, 502, 503, 504).Or(TransientErr).Or(ConnectionErrs)),
		NewBackoffWaiter(50*time.Millisecond, time.Second, 2.0, JitterNone),
	)
}
