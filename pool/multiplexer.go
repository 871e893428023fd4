// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"sort"
	"sync"
)

// A Multiplexer keys pools by host, creating each lazily on first
// use. Every pool shares the multiplexer's configuration and its
// combined idle budget.
type Multiplexer struct {
	config Config
	budget *idleBudget

	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewMultiplexer constructs a Multiplexer from c, returning a
// ConfigError if c is invalid.
func NewMultiplexer(c Config) (*Multiplexer, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &Multiplexer{
		config: c,
		budget: newIdleBudget(c.MaxIdleConnections),
		pools:  make(map[string]*Pool),
	}, nil
}

// Pool returns the pool for host, creating it on first use. Repeated
// calls for the same host return the same pool.
func (m *Multiplexer) Pool(host string) *Pool {
	m.mu.RLock()
	p := m.pools[host]
	m.mu.RUnlock()
	if p != nil {
		return p
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p = m.pools[host]; p == nil {
		p = newPool(host, m.config, m.budget)
		m.pools[host] = p
	}
	return p
}

// Acquire reserves a connection slot for host, waiting while the host
// is at its connection cap. See Pool.Acquire.
func (m *Multiplexer) Acquire(ctx context.Context, host string) (*Permit, error) {
	return m.Pool(host).Acquire(ctx)
}

// TryAcquire reserves a connection slot for host only if one is free
// right now.
func (m *Multiplexer) TryAcquire(host string) (*Permit, bool) {
	return m.Pool(host).TryAcquire()
}

// HostStats returns the health aggregates for host, reporting false
// if the host has never been used.
func (m *Multiplexer) HostStats(host string) (HostStats, bool) {
	m.mu.RLock()
	p := m.pools[host]
	m.mu.RUnlock()
	if p == nil {
		return HostStats{}, false
	}
	return p.HostStats(), true
}

// Hosts returns the hosts with a pool, sorted.
func (m *Multiplexer) Hosts() []string {
	m.mu.RLock()
	hosts := make([]string, 0, len(m.pools))
	for h := range m.pools {
		hosts = append(hosts, h)
	}
	m.mu.RUnlock()
	sort.Strings(hosts)
	return hosts
}

// Stats aggregates occupancy across every pool.
func (m *Multiplexer) Stats() AggregateStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agg := AggregateStats{Hosts: len(m.pools)}
	for _, p := range m.pools {
		s := p.Stats()
		agg.Active += s.Active
		agg.Idle += s.Idle
		agg.Capacity += s.Capacity
		agg.Created += s.Created
		agg.Reused += s.Reused
	}
	return agg
}

// Cleanup drops expired idle connections across every pool, returning
// how many were dropped. Call it periodically, or rely on the lazy
// expiry Acquire performs per host.
func (m *Multiplexer) Cleanup() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dropped := 0
	for _, p := range m.pools {
		dropped += p.CleanupExpired()
	}
	return dropped
}

// CloseIdle drops every idle connection across every pool, returning
// how many were dropped.
func (m *Multiplexer) CloseIdle() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dropped := 0
	for _, p := range m.pools {
		dropped += p.CloseIdle()
	}
	return dropped
}

// AggregateStats is occupancy summed across every pool under one
// Multiplexer.
type AggregateStats struct {
	Active   int
	Idle     int
	Capacity int
	Hosts    int
	Created  uint64
	Reused   uint64
}
