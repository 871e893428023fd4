// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

// A Middleware is a named unit of functionality installable in a Stack.
//
// The name identifies the middleware for later removal via Remove and
// in failure reports; it carries no other meaning, and several
// middleware may share one name. Concrete middleware implement at
// least one of the kind interfaces (Gate, HeaderInjector, Logger,
// RetryAdvisor, Recorder, Interceptor) in addition to Middleware, and
// Add registers them under every kind they implement.
type Middleware interface {
	// Name returns the middleware's name.
	Name() string
}

// A Kind identifies one of the stack's middleware kinds. Each kind is
// stored, capped, and run separately.
type Kind int

const (
	// KindRateLimit holds Gate middleware, consulted before any network
	// activity on an attempt.
	KindRateLimit Kind = iota
	// KindHeaders holds HeaderInjector middleware, contributing default
	// request headers.
	KindHeaders
	// KindLogging holds Logger middleware, observing requests,
	// responses and errors.
	KindLogging
	// KindRetry holds RetryAdvisor middleware, supplying the retry
	// policy for an execution.
	KindRetry
	// KindMetrics holds Recorder middleware, accumulating attempt
	// outcomes.
	KindMetrics
	// KindInterceptor holds Interceptor middleware, receiving lifecycle
	// events.
	KindInterceptor
	// kindSentinel provides the total number of kinds typed as a Kind.
	kindSentinel

	// numKinds provides the total number of kinds typed as an int.
	numKinds = int(kindSentinel)
)

var kindNames = []string{
	"RateLimit",
	"Headers",
	"Logging",
	"Retry",
	"Metrics",
	"Interceptor",
}

// Kinds returns a slice containing all middleware kinds a Stack
// recognizes.
func Kinds() []Kind {
	return []Kind{
		KindRateLimit,
		KindHeaders,
		KindLogging,
		KindRetry,
		KindMetrics,
		KindInterceptor,
	}
}

// Name returns the name of the kind.
func (k Kind) Name() string {
	return kindNames[int(k)]
}

// String returns the name of the kind.
func (k Kind) String() string {
	return k.Name()
}

// kindsOf lists the kinds a middleware implements, in Kind order.
func kindsOf(m Middleware) []Kind {
	var kinds []Kind
	if _, ok := m.(Gate); ok {
		kinds = append(kinds, KindRateLimit)
	}
	if _, ok := m.(HeaderInjector); ok {
		kinds = append(kinds, KindHeaders)
	}
	if _, ok := m.(Logger); ok {
		kinds = append(kinds, KindLogging)
	}
	if _, ok := m.(RetryAdvisor); ok {
		kinds = append(kinds, KindRetry)
	}
	if _, ok := m.(Recorder); ok {
		kinds = append(kinds, KindMetrics)
	}
	if _, ok := m.(Interceptor); ok {
		kinds = append(kinds, KindInterceptor)
	}
	return kinds
}
