// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"context"
	"math"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	uferrors "github.com/techgopal/ultrafast-client/errors"
)

const (
	// DefaultCapabilityTTL is how long detected capabilities stay
	// cached.
	DefaultCapabilityTTL = time.Hour
	// DefaultWeightTTL is how long learned preference weights stay
	// cached. Weights age out slower than capabilities.
	DefaultWeightTTL = 24 * time.Hour
	// DefaultCacheSize caps the hosts tracked by each cache.
	DefaultCacheSize = 1024
	// DefaultLearningRate scales how hard one outcome moves a
	// version's weight.
	DefaultLearningRate = 0.1
)

// Default preference weights favor newer protocols until evidence
// says otherwise.
const (
	defaultWeightV1 = 1.0
	defaultWeightV2 = 1.5
	defaultWeightV3 = 2.0

	// failurePenalty is the performance score assigned to a failed
	// attempt.
	failurePenalty = -0.1
	// weightFloor keeps every version selectable no matter how badly
	// it has performed.
	weightFloor = 0.1
)

// A Config carries the negotiator settings.
type Config struct {
	// PreferredVersion pins every selection to one version. Auto
	// enables per-host negotiation.
	PreferredVersion Version

	// CapabilityTTL bounds how long detected capabilities are
	// trusted. Zero means DefaultCapabilityTTL.
	CapabilityTTL time.Duration

	// WeightTTL bounds how long learned weights persist without
	// renewal. Zero means DefaultWeightTTL.
	WeightTTL time.Duration

	// CacheSize caps the hosts tracked per cache. Zero means
	// DefaultCacheSize.
	CacheSize int

	// LearningRate scales weight adjustments. Zero means
	// DefaultLearningRate.
	LearningRate float64

	// H2CPriorKnowledge selects HTTP/2 over cleartext for plain-HTTP
	// URLs instead of HTTP/1.1. Only set this for hosts known to
	// accept prior-knowledge h2c.
	H2CPriorKnowledge bool
}

// DefaultConfig returns the default negotiator settings: automatic
// selection with hour-long capability caching.
func DefaultConfig() Config {
	return Config{
		PreferredVersion: Auto,
		CapabilityTTL:    DefaultCapabilityTTL,
		WeightTTL:        DefaultWeightTTL,
		CacheSize:        DefaultCacheSize,
		LearningRate:     DefaultLearningRate,
	}
}

func (c *Config) normalize() error {
	if !c.PreferredVersion.Valid() {
		return uferrors.Configf("unknown protocol version %d", c.PreferredVersion)
	}
	if c.CapabilityTTL < 0 {
		return uferrors.Configf("capability_ttl cannot be negative, got %v", c.CapabilityTTL)
	}
	if c.WeightTTL < 0 {
		return uferrors.Configf("weight_ttl cannot be negative, got %v", c.WeightTTL)
	}
	if c.CacheSize < 0 {
		return uferrors.Configf("cache_size cannot be negative, got %d", c.CacheSize)
	}
	if c.LearningRate < 0 {
		return uferrors.Configf("learning_rate cannot be negative, got %v", c.LearningRate)
	}
	if c.CapabilityTTL == 0 {
		c.CapabilityTTL = DefaultCapabilityTTL
	}
	if c.WeightTTL == 0 {
		c.WeightTTL = DefaultWeightTTL
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.LearningRate == 0 {
		c.LearningRate = DefaultLearningRate
	}
	return nil
}

// A Negotiator picks the protocol version for each host and learns
// from attempt outcomes. All methods are safe for concurrent use.
type Negotiator struct {
	config   Config
	detector Detector

	caps    *expirable.LRU[string, Capabilities]
	weights *expirable.LRU[string, *hostRecord]

	// createMu serializes host record creation; reads go straight to
	// the weight cache.
	createMu sync.Mutex

	hits   atomic.Uint64
	misses atomic.Uint64
}

// A hostRecord accumulates one host's learned weights and per-version
// outcome metrics.
type hostRecord struct {
	mu        sync.Mutex
	weights   [V3 + 1]float64
	metrics   [V3 + 1]versionMetrics
	requests  uint64
	successes uint64
}

type versionMetrics struct {
	requests     uint64
	successes    uint64
	totalLatency time.Duration
}

func newHostRecord() *hostRecord {
	r := &hostRecord{}
	r.weights[V1] = defaultWeightV1
	r.weights[V2] = defaultWeightV2
	r.weights[V3] = defaultWeightV3
	return r
}

// New constructs a Negotiator from c, probing through d. A nil d
// selects an ALPNDetector with default throttling.
func New(c Config, d Detector) (*Negotiator, error) {
	if err := c.normalize(); err != nil {
		return nil, err
	}
	if d == nil {
		d = NewALPNDetector(0, 0)
	}
	return &Negotiator{
		config:   c,
		detector: d,
		caps:     expirable.NewLRU[string, Capabilities](c.CacheSize, nil, c.CapabilityTTL),
		weights:  expirable.NewLRU[string, *hostRecord](c.CacheSize, nil, c.WeightTTL),
	}, nil
}

// Select picks the version to attempt for u. A non-Auto
// PreferredVersion is returned unconditionally. Plain-HTTP URLs pick
// HTTP/1.1, or h2c under H2CPriorKnowledge. Otherwise the host's
// capabilities come from cache or a probe and the supported version
// with the best score wins, ties breaking toward the newest protocol.
func (n *Negotiator) Select(ctx context.Context, u *url.URL) Version {
	if v := n.config.PreferredVersion; v != Auto {
		return v
	}
	if u.Scheme != "https" {
		if n.config.H2CPriorKnowledge {
			return V2
		}
		return V1
	}
	host := hostKey(u)
	caps, ok := n.caps.Get(host)
	if ok {
		n.hits.Add(1)
		return n.pick(host, caps)
	}
	n.misses.Add(1)
	caps, err := n.detector.Detect(ctx, host)
	if err != nil {
		// An unprobeable host runs on the baseline for this attempt
		// but is not cached, so a later attempt probes again.
		return n.pick(host, Baseline())
	}
	n.caps.Add(host, caps)
	return n.pick(host, caps)
}

// RecordOutcome folds one attempt's result into the host's metrics
// and nudges the attempted version's weight: up for fast successes,
// down for failures, floored at 0.1.
func (n *Negotiator) RecordOutcome(host string, v Version, success bool, latency time.Duration) {
	if v < V1 || v > V3 {
		return
	}
	r := n.record(host)
	r.mu.Lock()
	defer r.mu.Unlock()

	m := &r.metrics[v]
	m.requests++
	m.totalLatency += latency
	r.requests++
	if success {
		m.successes++
		r.successes++
	}

	score := failurePenalty
	if success {
		score = 1.0 / (float64(latency.Milliseconds()) + 1.0)
	}
	w := r.weights[v] + n.config.LearningRate*score
	if w < weightFloor {
		w = weightFloor
	}
	r.weights[v] = w
}

// Weights returns a snapshot of the host's learned preference
// weights. Hosts with no recorded outcomes report the defaults.
func (n *Negotiator) Weights(host string) map[Version]float64 {
	r, ok := n.weights.Get(host)
	if !ok {
		return map[Version]float64{
			V1: defaultWeightV1,
			V2: defaultWeightV2,
			V3: defaultWeightV3,
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[Version]float64{V1: r.weights[V1], V2: r.weights[V2], V3: r.weights[V3]}
}

// Preload detects and caches capabilities for hosts that are not
// already cached. Hosts that fail to probe are skipped.
func (n *Negotiator) Preload(ctx context.Context, hosts []string) {
	for _, host := range hosts {
		if _, ok := n.caps.Get(host); ok {
			continue
		}
		caps, err := n.detector.Detect(ctx, host)
		if err != nil {
			continue
		}
		n.caps.Add(host, caps)
	}
}

// CacheStats reports cache occupancy and lookup effectiveness.
func (n *Negotiator) CacheStats() CacheStats {
	hits, misses := n.hits.Load(), n.misses.Load()
	s := CacheStats{
		Hits:              hits,
		Misses:            misses,
		CapabilityEntries: n.caps.Len(),
		WeightEntries:     n.weights.Len(),
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// Reset drops all cached capabilities and learned weights.
func (n *Negotiator) Reset() {
	n.caps.Purge()
	n.weights.Purge()
}

// CacheStats describes the negotiator's cache state.
type CacheStats struct {
	Hits              uint64
	Misses            uint64
	HitRate           float64
	CapabilityEntries int
	WeightEntries     int
}

// pick scores every version the host supports and returns the best.
// Candidates are evaluated newest first, so ties keep the newer
// protocol.
func (n *Negotiator) pick(host string, caps Capabilities) Version {
	r, _ := n.weights.Get(host)
	best, bestScore := V1, math.Inf(-1)
	for _, v := range []Version{V3, V2, V1} {
		if !caps.Supports(v) {
			continue
		}
		if s := score(r, v); s > bestScore {
			best, bestScore = v, s
		}
	}
	return best
}

// score rates one version for one host: its weight for untested
// versions, otherwise weight scaled by the version's success rate,
// its latency score 1000/(avg_ms+1), and the host's overall
// reliability.
func score(r *hostRecord, v Version) float64 {
	if r == nil {
		return defaultWeight(v)
	}
	r.mu.Lock()
	weight := r.weights[v]
	m := r.metrics[v]
	reliability := 1.0
	if r.requests > 0 {
		reliability = float64(r.successes) / float64(r.requests)
	}
	r.mu.Unlock()

	if m.requests == 0 {
		return weight
	}
	successRate := float64(m.successes) / float64(m.requests)
	avgMs := float64(m.totalLatency.Milliseconds()) / float64(m.requests)
	timeScore := 1000.0 / (avgMs + 1.0)
	return weight * successRate * timeScore * reliability
}

func defaultWeight(v Version) float64 {
	switch v {
	case V2:
		return defaultWeightV2
	case V3:
		return defaultWeightV3
	default:
		return defaultWeightV1
	}
}

// record returns the host's record, creating it on first use.
func (n *Negotiator) record(host string) *hostRecord {
	if r, ok := n.weights.Get(host); ok {
		return r
	}
	n.createMu.Lock()
	defer n.createMu.Unlock()
	if r, ok := n.weights.Get(host); ok {
		return r
	}
	r := newHostRecord()
	n.weights.Add(host, r)
	return r
}

// hostKey canonicalizes a URL's host to "host:port" so negotiator,
// limiter, and pool agree on keys.
func hostKey(u *url.URL) string {
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host += ":443"
		case "http":
			host += ":80"
		}
	}
	return host
}
