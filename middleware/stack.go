// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/techgopal/ultrafast-client/request"
	"github.com/techgopal/ultrafast-client/retry"
)

// DefaultKindLimit is the maximum number of middleware a Stack accepts
// per kind unless WithKindLimit sets a different cap.
const DefaultKindLimit = 100

// ErrStackFull is reported by Add when the kind a middleware belongs to
// is already at its capacity. Test for it with errors.Is.
var ErrStackFull = errors.New("ultrafast/middleware: stack full")

// A Stack is a set of middleware installed in a client, partitioned by
// kind and bounded per kind.
//
// Within a kind, middleware run in the order they were added. A Stack
// is safe for concurrent use by multiple goroutines. The zero value is
// an empty stack ready for use; NewStack is only needed to set options.
type Stack struct {
	mu      sync.RWMutex
	limit   int
	logger  *zap.Logger
	entries [][]entry
}

type entry struct {
	name string
	m    Middleware
}

// An Option configures a Stack at construction time.
type Option func(*Stack)

// WithKindLimit sets the maximum number of middleware the stack accepts
// per kind. It panics if n is not positive.
func WithKindLimit(n int) Option {
	if n < 1 {
		panic("ultrafast/middleware: kind limit must be positive")
	}
	return func(s *Stack) { s.limit = n }
}

// WithLogger sets the logger the stack uses to report failures it
// swallows, in particular panics recovered from logging, metrics and
// interceptor middleware. Without a logger, swallowed failures are
// discarded.
func WithLogger(l *zap.Logger) Option {
	return func(s *Stack) { s.logger = l }
}

// NewStack constructs an empty middleware stack with the given options
// applied.
func NewStack(opts ...Option) *Stack {
	s := &Stack{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add installs a middleware in the stack, registering it under every
// kind interface it implements. Registration order within a kind is
// preserved, and several middleware may share a name.
//
// Add returns an error wrapping ErrStackFull, and registers nothing,
// if any kind the middleware belongs to is at its capacity. It panics
// if m is nil, if its name is empty, or if it implements none of the
// kind interfaces.
func (s *Stack) Add(m Middleware) error {
	if m == nil {
		panic("ultrafast/middleware: nil middleware")
	}
	name := m.Name()
	if name == "" {
		panic("ultrafast/middleware: empty middleware name")
	}
	kinds := kindsOf(m)
	if len(kinds) == 0 {
		panic("ultrafast/middleware: middleware implements no kind interface")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries == nil {
		s.entries = make([][]entry, numKinds)
	}
	limit := s.limit
	if limit == 0 {
		limit = DefaultKindLimit
	}
	for _, k := range kinds {
		if len(s.entries[k]) >= limit {
			return fmt.Errorf("%w: kind %s at limit %d", ErrStackFull, k, limit)
		}
	}
	for _, k := range kinds {
		s.entries[k] = append(s.entries[k], entry{name: name, m: m})
	}
	return nil
}

// Remove uninstalls every registration whose middleware has the given
// name, across all kinds, and reports whether anything was removed.
func (s *Stack) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	for k := range s.entries {
		kept := s.entries[k][:0]
		for _, e := range s.entries[k] {
			if e.name == name {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		s.entries[k] = kept
	}
	return removed
}

// Len returns the total number of registrations across all kinds. A
// middleware implementing several kind interfaces counts once per kind
// it is registered under.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, entries := range s.entries {
		n += len(entries)
	}
	return n
}

// kind returns the registration list for k. The caller must hold mu.
func (s *Stack) kind(k Kind) []entry {
	if s.entries == nil {
		return nil
	}
	return s.entries[k]
}

// Admit runs every rate-limit gate in registration order and returns
// the first error any of them report, or nil when all gates admit the
// attempt. The client calls Admit before any network activity on an
// attempt; a gate error aborts the attempt and is never retried.
func (s *Stack) Admit(ctx context.Context, host string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ent := range s.kind(KindRateLimit) {
		if err := ent.m.(Gate).Admit(ctx, host); err != nil {
			return err
		}
	}
	return nil
}

// InjectHeaders returns h extended with every header injector's
// contribution, merged absent-only: a key already present in h is never
// replaced, so caller headers always win and earlier injectors win over
// later ones. Invalid contributions are dropped per validHeader.
//
// When the stack holds at least one header injector the merge happens
// on a clone, leaving h itself untouched; a stack with no header
// injectors returns h unchanged. Callers must use the returned header.
func (s *Stack) InjectHeaders(h http.Header) http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()

	injectors := s.kind(KindHeaders)
	if len(injectors) == 0 {
		return h
	}
	merged := h.Clone()
	if merged == nil {
		merged = make(http.Header)
	}
	for _, ent := range injectors {
		scratch := make(http.Header)
		ent.m.(HeaderInjector).Inject(scratch)
		mergeAbsent(merged, scratch)
	}
	return merged
}

// LogRequest notifies every logging middleware that a request attempt
// is about to be sent. Panics in a logger are recovered and reported to
// the stack's logger.
func (s *Stack) LogRequest(e *request.Execution) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ent := range s.kind(KindLogging) {
		s.guard(ent.name, "LogRequest", func() { ent.m.(Logger).LogRequest(e) })
	}
}

// LogResponse notifies every logging middleware that a request attempt
// produced an HTTP response. Panics in a logger are recovered and
// reported to the stack's logger.
func (s *Stack) LogResponse(e *request.Execution) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ent := range s.kind(KindLogging) {
		s.guard(ent.name, "LogResponse", func() { ent.m.(Logger).LogResponse(e) })
	}
}

// LogError notifies every logging middleware that a request attempt
// ended in an error. Panics in a logger are recovered and reported to
// the stack's logger.
func (s *Stack) LogError(e *request.Execution) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ent := range s.kind(KindLogging) {
		s.guard(ent.name, "LogError", func() { ent.m.(Logger).LogError(e) })
	}
}

// Record hands the concluded attempt to every metrics middleware.
// Panics in a recorder are recovered and reported to the stack's
// logger.
func (s *Stack) Record(e *request.Execution) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ent := range s.kind(KindMetrics) {
		s.guard(ent.name, "Record", func() { ent.m.(Recorder).Record(e) })
	}
}

// On delivers a lifecycle event to every interceptor in registration
// order. Panics in an interceptor are recovered and reported to the
// stack's logger.
func (s *Stack) On(evt Event, e *request.Execution) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ent := range s.kind(KindInterceptor) {
		s.guard(ent.name, evt.Name(), func() { ent.m.(Interceptor).On(evt, e) })
	}
}

// RetryPolicy returns the policy of the first registered retry advisor,
// or nil when the stack holds no advisor. A non-nil result overrides
// the client's own retry policy for the execution.
func (s *Stack) RetryPolicy() retry.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.kind(KindRetry)
	if len(entries) == 0 {
		return nil
	}
	return entries[0].m.(RetryAdvisor).Policy()
}

// guard runs f, converting a panic into a report on the stack's logger.
// The caller must hold mu for reading.
func (s *Stack) guard(name, stage string, f func()) {
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Error("middleware panic recovered",
				zap.String("middleware", name),
				zap.String("stage", stage),
				zap.Any("panic", r))
		}
	}()
	f()
}
