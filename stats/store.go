// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// HostStats is a point-in-time copy of the statistics recorded for a
// single host.
type HostStats struct {
	// Host is the canonical host:port the statistics belong to.
	Host string
	// Protocol is the protocol that served the host's most recent
	// request, in http.Response.Proto form ("HTTP/2.0").
	Protocol string
	// Requests is the total number of request attempts recorded.
	Requests uint64
	// Errors is the number of recorded attempts that failed.
	Errors uint64
	// BytesSent is the total request body bytes sent to the host.
	BytesSent uint64
	// BytesReceived is the total response body bytes read from the
	// host.
	BytesReceived uint64
	// AvgLatency is the rolling average attempt latency. After n
	// recorded attempts it equals avg' = (avg*(n-1) + latest) / n.
	AvgLatency time.Duration
	// LastUsed is the time of the most recent recorded attempt.
	LastUsed time.Time
}

// ErrorRate returns the fraction of recorded attempts that failed, in
// [0, 1]. It returns 0 when nothing has been recorded.
func (h HostStats) ErrorRate() float64 {
	if h.Requests == 0 {
		return 0
	}
	return float64(h.Errors) / float64(h.Requests)
}

type hostRecord struct {
	protocol       string
	requests       uint64
	errors         uint64
	bytesSent      uint64
	bytesReceived  uint64
	latencySamples uint64
	avgLatency     time.Duration
	lastUsed       time.Time
}

// observe folds one latency sample into the rolling average. Callers
// hold the store mutex.
func (r *hostRecord) observe(latency time.Duration) {
	r.latencySamples++
	n := time.Duration(r.latencySamples)
	r.avgLatency = (r.avgLatency*(n-1) + latency) / n
}

// A Store accumulates per-host request statistics. The zero value is
// not usable; construct with NewStore.
//
// A Store is safe for concurrent use by multiple goroutines.
type Store struct {
	totalRequests atomic.Uint64
	totalErrors   atomic.Uint64
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
	totalLatency  atomic.Int64
	latencyCount  atomic.Uint64

	mu    sync.RWMutex
	hosts map[string]*hostRecord
}

// NewStore returns an empty statistics store.
func NewStore() *Store {
	return &Store{hosts: make(map[string]*hostRecord)}
}

// RecordRequest records one completed request attempt against host.
// The protocol is the protocol that served the attempt ("HTTP/2.0"
// form; empty is allowed and leaves the previous value in place),
// latency is the attempt duration, sent and received are the request
// and response body sizes in bytes, and failed indicates whether the
// attempt concluded in failure.
//
// Hosts are created on first use. An empty host records only the
// process-wide totals.
func (s *Store) RecordRequest(host, protocol string, latency time.Duration, sent, received int64, failed bool) {
	s.totalRequests.Add(1)
	if failed {
		s.totalErrors.Add(1)
	}
	s.totalLatency.Add(int64(latency))
	s.latencyCount.Add(1)
	if sent > 0 {
		s.bytesSent.Add(uint64(sent))
	}
	if received > 0 {
		s.bytesReceived.Add(uint64(received))
	}
	if host == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.record(host)
	r.requests++
	if failed {
		r.errors++
	}
	if sent > 0 {
		r.bytesSent += uint64(sent)
	}
	if received > 0 {
		r.bytesReceived += uint64(received)
	}
	if protocol != "" {
		r.protocol = protocol
	}
	r.observe(latency)
	r.lastUsed = time.Now()
}

// IncrementRequests counts one attempt against host with no latency,
// byte, or outcome information. Use it with RecordError, AddBytes, and
// ObserveLatency when an attempt's facts arrive piecemeal;
// RecordRequest records all of them in one call.
func (s *Store) IncrementRequests(host string) {
	s.totalRequests.Add(1)
	if host == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.record(host)
	r.requests++
	r.lastUsed = time.Now()
}

// RecordError counts one failed attempt against host. It does not
// count the attempt itself.
func (s *Store) RecordError(host string) {
	s.totalErrors.Add(1)
	if host == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.record(host)
	r.errors++
	r.lastUsed = time.Now()
}

// AddBytes adds request and response body sizes to host's totals.
// Negative sizes are ignored.
func (s *Store) AddBytes(host string, sent, received int64) {
	if sent > 0 {
		s.bytesSent.Add(uint64(sent))
	}
	if received > 0 {
		s.bytesReceived.Add(uint64(received))
	}
	if host == "" || (sent <= 0 && received <= 0) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.record(host)
	if sent > 0 {
		r.bytesSent += uint64(sent)
	}
	if received > 0 {
		r.bytesReceived += uint64(received)
	}
	r.lastUsed = time.Now()
}

// ObserveLatency folds one latency sample into host's rolling average.
func (s *Store) ObserveLatency(host string, latency time.Duration) {
	s.totalLatency.Add(int64(latency))
	s.latencyCount.Add(1)
	if host == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.record(host)
	r.observe(latency)
	r.lastUsed = time.Now()
}

// record returns the mutable record for host, creating it on first
// use. Callers hold the store mutex.
func (s *Store) record(host string) *hostRecord {
	r := s.hosts[host]
	if r == nil {
		r = &hostRecord{}
		s.hosts[host] = r
	}
	return r
}

// Host returns a copy of the statistics recorded for host, and whether
// any exist.
func (s *Store) Host(host string) (HostStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.hosts[host]
	if !ok {
		return HostStats{}, false
	}
	return s.export(host, r), true
}

// Hosts returns a copy of the statistics for every host with recorded
// activity. The order of the returned slice is unspecified.
func (s *Store) Hosts() []HostStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HostStats, 0, len(s.hosts))
	for host, r := range s.hosts {
		out = append(out, s.export(host, r))
	}
	return out
}

func (s *Store) export(host string, r *hostRecord) HostStats {
	return HostStats{
		Host:          host,
		Protocol:      r.protocol,
		Requests:      r.requests,
		Errors:        r.errors,
		BytesSent:     r.bytesSent,
		BytesReceived: r.bytesReceived,
		AvgLatency:    r.avgLatency,
		LastUsed:      r.lastUsed,
	}
}

// Snapshot exports the process-wide totals as a flat map, suitable for
// dumping into logs or serializing across a boundary. The keys are:
// total_hosts, total_requests, total_errors, total_bytes_sent,
// total_bytes_received, avg_latency_ms, and error_rate_percent.
func (s *Store) Snapshot() map[string]float64 {
	s.mu.RLock()
	hosts := len(s.hosts)
	s.mu.RUnlock()

	requests := s.totalRequests.Load()
	errors := s.totalErrors.Load()
	rate := 0.0
	if requests > 0 {
		rate = float64(errors) / float64(requests) * 100
	}
	avgMs := 0.0
	if samples := s.latencyCount.Load(); samples > 0 {
		avgMs = float64(s.totalLatency.Load()) / float64(samples) / float64(time.Millisecond)
	}
	return map[string]float64{
		"total_hosts":          float64(hosts),
		"total_requests":       float64(requests),
		"total_errors":         float64(errors),
		"total_bytes_sent":     float64(s.bytesSent.Load()),
		"total_bytes_received": float64(s.bytesReceived.Load()),
		"avg_latency_ms":       avgMs,
		"error_rate_percent":   rate,
	}
}

// Len returns the number of hosts with recorded activity.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hosts)
}

// Clear removes the statistics recorded for host and reports whether
// any existed. Process-wide totals are unaffected.
func (s *Store) Clear(host string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.hosts[host]
	delete(s.hosts, host)
	return ok
}

// ClearAll removes all per-host statistics and resets the process-wide
// totals to zero.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.hosts = make(map[string]*hostRecord)
	s.mu.Unlock()
	s.totalRequests.Store(0)
	s.totalErrors.Store(0)
	s.bytesSent.Store(0)
	s.bytesReceived.Store(0)
	s.totalLatency.Store(0)
	s.latencyCount.Store(0)
}
