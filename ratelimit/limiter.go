// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	uferrors "github.com/techgopal/ultrafast-client/errors"
)

// A Limiter admits or rejects request attempts under the configured
// algorithm, either globally or independently per host. All methods
// are safe for concurrent use.
//
// Admission never holds a lock across network activity: the lock scope
// is the single check-and-update on the relevant state.
type Limiter struct {
	config Config

	// global is the single admission domain when PerHost is false.
	global state

	mu    sync.RWMutex
	hosts map[string]state

	// queued counts attempts currently parked in Wait.
	queued atomic.Int32
}

// New constructs a Limiter from c. It returns a ConfigError if c is
// invalid, for example a non-positive rate on an enabled limiter or a
// window so short that it admits no requests.
func New(c Config) (*Limiter, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	l := &Limiter{
		config: c,
		hosts:  make(map[string]state),
	}
	if !c.PerHost {
		l.global = newState(c, time.Now())
	}
	return l, nil
}

// Config returns the configuration the limiter was built from.
func (l *Limiter) Config() Config { return l.config }

// Enabled reports whether the limiter restricts anything. A disabled
// limiter admits every attempt.
func (l *Limiter) Enabled() bool { return l.config.Enabled }

// CanProceed consumes capacity for one attempt against host if any is
// available, reporting whether the attempt was admitted. A disabled
// limiter always admits.
func (l *Limiter) CanProceed(host string) bool {
	if !l.config.Enabled {
		return true
	}
	return l.state(host).admit(time.Now())
}

// Check admits one attempt against host or fails fast with a
// RateLimitError carrying the estimated wait until capacity opens.
func (l *Limiter) Check(host string) error {
	if !l.config.Enabled {
		return nil
	}
	s := l.state(host)
	now := time.Now()
	if s.admit(now) {
		return nil
	}
	return &uferrors.RateLimitError{Host: host, Wait: s.until(now)}
}

// Wait admits one attempt against host, parking the caller until
// capacity opens when queueing is enabled. It returns nil once
// admitted; a QueueFullError immediately if MaxQueueSize attempts are
// already parked; a RateLimitError if QueueTimeout elapses first; or
// ctx.Err() if ctx is done. With queueing disabled it behaves like
// Check.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if !l.config.Enabled {
		return nil
	}
	s := l.state(host)
	if s.admit(time.Now()) {
		return nil
	}
	if !l.config.QueueRequests {
		return &uferrors.RateLimitError{Host: host, Wait: s.until(time.Now())}
	}

	if n := l.queued.Add(1); int(n) > l.config.MaxQueueSize {
		l.queued.Add(-1)
		return &uferrors.QueueFullError{Host: host, Size: l.config.MaxQueueSize}
	}
	defer l.queued.Add(-1)

	var expired <-chan time.Time
	if l.config.QueueTimeout > 0 {
		t := time.NewTimer(l.config.QueueTimeout)
		defer t.Stop()
		expired = t.C
	}
	for {
		wait := s.until(time.Now())
		if wait < time.Millisecond {
			// Capacity looked open but another waiter took it.
			wait = time.Millisecond
		}
		ready := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			ready.Stop()
			return ctx.Err()
		case <-expired:
			ready.Stop()
			return &uferrors.RateLimitError{Host: host, Wait: s.until(time.Now())}
		case <-ready.C:
		}
		if s.admit(time.Now()) {
			return nil
		}
	}
}

// TimeUntilAvailable reports how long until the next attempt against
// host would be admitted. Zero means an attempt would be admitted now.
// It never mutates limiter state and never creates state for a host
// that has not been seen, so it is safe for status reporting.
func (l *Limiter) TimeUntilAvailable(host string) time.Duration {
	if !l.config.Enabled {
		return 0
	}
	s := l.peek(host)
	if s == nil {
		return 0
	}
	return s.until(time.Now())
}

// A Status is a point-in-time view of the limiter's posture toward one
// host.
type Status struct {
	// Enabled mirrors Config().Enabled.
	Enabled bool
	// Limited reports whether an attempt against the host would have
	// to wait for capacity right now.
	Limited bool
	// Wait is the estimated time until the next attempt against the
	// host would be admitted. Zero when Limited is false.
	Wait time.Duration
	// Queued is the number of attempts currently parked in Wait,
	// across all hosts.
	Queued int
}

// Status reports the limiter's current posture toward host. Like
// TimeUntilAvailable it never consumes capacity and never creates
// per-host state.
func (l *Limiter) Status(host string) Status {
	if !l.config.Enabled {
		return Status{}
	}
	wait := l.TimeUntilAvailable(host)
	return Status{
		Enabled: true,
		Limited: wait > 0,
		Wait:    wait,
		Queued:  int(l.queued.Load()),
	}
}

// Reset restores every admission domain to full capacity. Parked
// waiters are not released early; they admit naturally on their next
// poll.
func (l *Limiter) Reset() {
	now := time.Now()
	if l.global != nil {
		l.global.reset(now)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.hosts {
		s.reset(now)
	}
}

// Stats returns a snapshot of the limiter's configuration and load,
// keyed by metric name. A disabled limiter reports only
// "enabled" = 0.
func (l *Limiter) Stats() map[string]float64 {
	if !l.config.Enabled {
		return map[string]float64{"enabled": 0}
	}
	l.mu.RLock()
	hosts := len(l.hosts)
	l.mu.RUnlock()
	return map[string]float64{
		"enabled":             1,
		"requests_per_second": l.config.RequestsPerSecond,
		"burst_size":          l.config.burst(),
		"window_size_seconds": l.config.WindowSize.Seconds(),
		"queued":              float64(l.queued.Load()),
		"hosts":               float64(hosts),
	}
}

// state returns the admission domain for host, creating it on first
// use in per-host scope.
func (l *Limiter) state(host string) state {
	if !l.config.PerHost {
		return l.global
	}
	l.mu.RLock()
	s := l.hosts[host]
	l.mu.RUnlock()
	if s != nil {
		return s
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if s = l.hosts[host]; s == nil {
		s = newState(l.config, time.Now())
		l.hosts[host] = s
	}
	return s
}

// peek returns the admission domain for host without creating one.
func (l *Limiter) peek(host string) state {
	if !l.config.PerHost {
		return l.global
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hosts[host]
}
