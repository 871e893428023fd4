// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	uferrors "github.com/techgopal/ultrafast-client/errors"
)

// A Pool bounds the connections for a single host and tracks that
// host's health aggregates. All methods are safe for concurrent use.
// The pool's lock covers only its own bookkeeping, never network
// activity: callers hold a Permit, not the lock, while a request is
// in flight.
type Pool struct {
	host   string
	config Config
	sem    *semaphore.Weighted
	budget *idleBudget

	mu      sync.Mutex
	idle    []idleConn
	active  int
	nextID  uint64
	created uint64
	reused  uint64
	stats   HostStats
}

// An idleConn is a parked connection identity awaiting reuse.
type idleConn struct {
	id    uint64
	since time.Time
}

// New constructs a standalone Pool for host. Pools managed by a
// Multiplexer share one idle budget; a standalone pool gets its own.
func New(host string, c Config) (*Pool, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return newPool(host, c, newIdleBudget(c.MaxIdleConnections)), nil
}

func newPool(host string, c Config, budget *idleBudget) *Pool {
	return &Pool{
		host:   host,
		config: c,
		sem:    semaphore.NewWeighted(int64(c.MaxConnections)),
		budget: budget,
	}
}

// Host returns the host this pool serves.
func (p *Pool) Host() string { return p.host }

// Acquire reserves a connection slot, waiting while the host is at
// its connection cap. It returns ctx.Err() if ctx ends first, or a
// ConnectionError if the configured AcquireTimeout elapses while the
// caller's context is still live. On success the returned permit must
// be released exactly once.
func (p *Pool) Acquire(ctx context.Context) (*Permit, error) {
	acquireCtx := ctx
	if p.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.config.AcquireTimeout)
		defer cancel()
	}
	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &uferrors.ConnectionError{
			Host:  p.host,
			Cause: fmt.Errorf("no connection slot freed within %v", p.config.AcquireTimeout),
		}
	}
	return p.take(), nil
}

// TryAcquire reserves a connection slot only if one is free right
// now, reporting whether it did.
func (p *Pool) TryAcquire() (*Permit, bool) {
	if !p.sem.TryAcquire(1) {
		return nil, false
	}
	return p.take(), true
}

// take builds the permit for a freshly reserved slot, reusing the
// most recently parked connection identity that has not idled out.
func (p *Pool) take() *Permit {
	now := time.Now()
	p.mu.Lock()
	id, reused := uint64(0), false
	for n := len(p.idle); n > 0; n = len(p.idle) {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.budget.free()
		if now.Sub(c.since) < p.config.MaxIdleTime {
			id, reused = c.id, true
			break
		}
	}
	if !reused {
		p.nextID++
		id = p.nextID
		p.created++
	} else {
		p.reused++
	}
	p.active++
	p.mu.Unlock()
	return &Permit{pool: p, id: id, reused: reused}
}

// HostStats returns a snapshot of the host's health aggregates.
func (p *Pool) HostStats() HostStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.TotalConnections = p.created
	s.ActiveConnections = p.active
	return s
}

// Stats returns a snapshot of the pool's occupancy.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Host:     p.host,
		Active:   p.active,
		Idle:     len(p.idle),
		Capacity: p.config.MaxConnections,
		Created:  p.created,
		Reused:   p.reused,
	}
}

// CleanupExpired drops parked connections that have exceeded the idle
// lifetime, returning how many were dropped.
func (p *Pool) CleanupExpired() int {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.idle[:0]
	for _, c := range p.idle {
		if now.Sub(c.since) < p.config.MaxIdleTime {
			kept = append(kept, c)
		} else {
			p.budget.free()
		}
	}
	dropped := len(p.idle) - len(kept)
	p.idle = kept
	return dropped
}

// CloseIdle drops every parked connection immediately, returning how
// many were dropped.
func (p *Pool) CloseIdle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	for range p.idle {
		p.budget.free()
	}
	p.idle = nil
	return n
}

// A Permit is one reserved connection slot. Exactly one of the
// feedback methods should be called per attempt, then Release; extra
// Release calls are ignored so a deferred Release is safe alongside
// an explicit one.
type Permit struct {
	pool     *Pool
	id       uint64
	reused   bool
	released atomic.Bool
}

// ID identifies the underlying connection. Reused connections keep
// their original ID across permits.
func (p *Permit) ID() uint64 { return p.id }

// Reused reports whether the permit adopted a parked connection
// rather than opening a new one.
func (p *Permit) Reused() bool { return p.reused }

// Used records a completed attempt: latency folds into the host's
// running average, the success rate is nudged up, and proto (in
// "HTTP/2" form, if known) becomes the host's preferred protocol.
func (p *Permit) Used(latency time.Duration, proto string) {
	pl := p.pool
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.stats.AvgResponseTime = (pl.stats.AvgResponseTime + latency) / 2
	pl.stats.SuccessRate = pl.stats.SuccessRate*0.9 + 0.1
	if proto != "" {
		pl.stats.PreferredProtocol = proto
	}
}

// Failed records a failed attempt: the failure count and timestamp
// advance and the success rate decays.
func (p *Permit) Failed() {
	pl := p.pool
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.stats.FailedConnections++
	pl.stats.LastFailure = time.Now()
	pl.stats.SuccessRate *= 0.9
}

// Release returns the connection slot and parks the connection
// identity for reuse, subject to the per-host and combined idle caps.
// Calling Release more than once is a no-op.
func (p *Permit) Release() {
	if !p.released.CompareAndSwap(false, true) {
		return
	}
	pl := p.pool
	pl.mu.Lock()
	pl.active--
	if len(pl.idle) < pl.config.MaxIdlePerHost && pl.budget.reserve() {
		pl.idle = append(pl.idle, idleConn{id: p.id, since: time.Now()})
	}
	pl.mu.Unlock()
	pl.sem.Release(1)
}

// HostStats aggregates one host's connection health. Snapshots are
// plain values; mutating one has no effect on the pool.
type HostStats struct {
	// TotalConnections counts connections ever opened to the host.
	TotalConnections uint64
	// ActiveConnections counts slots currently held by permits.
	ActiveConnections int
	// FailedConnections counts attempts reported through
	// Permit.Failed.
	FailedConnections uint64
	// AvgResponseTime is the running average attempt latency, folded
	// as (previous + latest) / 2 so recent attempts dominate.
	AvgResponseTime time.Duration
	// SuccessRate is an exponentially weighted success fraction in
	// [0, 1]; each success nudges it toward 1 and each failure decays
	// it by 10%.
	SuccessRate float64
	// LastFailure is when Permit.Failed was last called, or zero.
	LastFailure time.Time
	// PreferredProtocol is the protocol most recently reported
	// through Permit.Used, in "HTTP/2" form.
	PreferredProtocol string
}

// PoolStats is a snapshot of one pool's occupancy.
type PoolStats struct {
	Host     string
	Active   int
	Idle     int
	Capacity int
	// Created counts connections opened over the pool's lifetime.
	Created uint64
	// Reused counts permits that adopted a parked connection.
	Reused uint64
}

// An idleBudget caps idle connections across the pools that share it.
type idleBudget struct {
	cap int64
	n   atomic.Int64
}

// newIdleBudget returns a budget admitting up to capacity idle
// connections, or an unlimited budget when capacity is zero.
func newIdleBudget(capacity int) *idleBudget {
	return &idleBudget{cap: int64(capacity)}
}

// reserve claims one idle slot, reporting whether one was available.
func (b *idleBudget) reserve() bool {
	if b.cap <= 0 {
		return true
	}
	if b.n.Add(1) > b.cap {
		b.n.Add(-1)
		return false
	}
	return true
}

// free returns one idle slot.
func (b *idleBudget) free() {
	if b.cap <= 0 {
		return
	}
	b.n.Add(-1)
}
