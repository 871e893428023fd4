// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"context"
	"crypto/tls"
	"errors"
	"math"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// A Detector probes one host's protocol capabilities. Detect returns
// the best capabilities it could establish together with any error
// that kept it from a definitive answer; the capabilities are usable
// either way, but callers should not cache them when err is non-nil.
type Detector interface {
	Detect(ctx context.Context, host string) (Capabilities, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, host string) (Capabilities, error)

func (f DetectorFunc) Detect(ctx context.Context, host string) (Capabilities, error) {
	return f(ctx, host)
}

// ErrProbeThrottled reports that a detector declined to probe because
// its probe budget was exhausted.
var ErrProbeThrottled = errors.New("ultrafast/protocol: probe budget exhausted")

const (
	defaultProbeRate    = 10 // probes per second
	defaultProbeTimeout = time.Second
)

// An ALPNDetector learns a host's capabilities from a real TLS
// handshake: it offers "h2" and "http/1.1" and reads back what the
// host picked. Probes are throttled so a burst of cache misses cannot
// turn into a handshake storm; a throttled or failed probe yields
// Baseline capabilities and a non-nil error.
//
// TLS-level ALPN cannot observe QUIC, so HTTP/3 is always reported
// unavailable.
type ALPNDetector struct {
	// TLSConfig is cloned for each probe. NextProtos and, when blank,
	// ServerName are overridden per probe. Nil means defaults.
	TLSConfig *tls.Config
	// Timeout bounds one probe handshake.
	Timeout time.Duration

	limiter *rate.Limiter
}

// NewALPNDetector returns a detector probing at most probesPerSecond
// times per second with each probe bounded by timeout. Zero or
// negative arguments select the defaults (10 probes per second, one
// second per probe).
func NewALPNDetector(probesPerSecond float64, timeout time.Duration) *ALPNDetector {
	if probesPerSecond <= 0 {
		probesPerSecond = defaultProbeRate
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &ALPNDetector{
		Timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(probesPerSecond), int(math.Ceil(probesPerSecond))),
	}
}

// Detect probes host, given in "host:port" form. A bare hostname
// probes port 443.
func (d *ALPNDetector) Detect(ctx context.Context, host string) (Capabilities, error) {
	if !d.limiter.Allow() {
		return Baseline(), ErrProbeThrottled
	}

	serverName, _, err := net.SplitHostPort(host)
	if err != nil {
		serverName = host
		host = net.JoinHostPort(host, "443")
	}
	cfg := d.TLSConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cfg.NextProtos = []string{"h2", "http/1.1"}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	start := time.Now()
	dialer := &tls.Dialer{Config: cfg}
	conn, err := dialer.DialContext(probeCtx, "tcp", host)
	if err != nil {
		return Baseline(), err
	}
	negotiated := conn.(*tls.Conn).ConnectionState().NegotiatedProtocol
	conn.Close()

	caps := Baseline()
	caps.ConnectTime = time.Since(start)
	if negotiated == "h2" {
		caps.MaxVersion = V2
		caps.HTTP2 = true
		caps.ALPN = []string{"h2", "http/1.1"}
	}
	return caps, nil
}

// A StaticDetector answers from a fixed table instead of probing.
// Tests use it for determinism, and embedders use it to assert known
// capabilities, including HTTP/3, without handshake traffic.
type StaticDetector struct {
	mu    sync.RWMutex
	def   Capabilities
	hosts map[string]Capabilities
}

// NewStaticDetector returns a detector answering def for every host
// not overridden by Set.
func NewStaticDetector(def Capabilities) *StaticDetector {
	return &StaticDetector{def: def, hosts: make(map[string]Capabilities)}
}

// Set overrides the answer for one host.
func (d *StaticDetector) Set(host string, caps Capabilities) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hosts[host] = caps
}

func (d *StaticDetector) Detect(_ context.Context, host string) (Capabilities, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if caps, ok := d.hosts[host]; ok {
		return caps, nil
	}
	return d.def, nil
}
