// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	uferrors "github.com/techgopal/ultrafast-client/errors"
)

// A Config carries the wire-level settings shared by every
// round-tripper an HTTPTransport builds.
type Config struct {
	// ConnectTimeout bounds the TCP dial for one connection. Must not
	// be negative; zero means the default of 10 seconds.
	ConnectTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake on a new
	// connection. Must not be negative; zero means the default of 10
	// seconds.
	TLSHandshakeTimeout time.Duration

	// IdleConnTimeout is how long an idle kept-alive connection stays
	// open inside net/http's pool. Must not be negative; zero means
	// the default of 90 seconds.
	IdleConnTimeout time.Duration

	// MaxIdleConns caps idle kept-alive connections across all hosts.
	// Must not be negative; zero means the default of 100.
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle kept-alive connections per host.
	// Must not be negative; zero means the default of 10.
	MaxIdleConnsPerHost int

	// HTTP2PriorKnowledge enables serving HTTP/2 version hints for
	// plain "http" URLs over cleartext TCP (h2c), skipping the
	// HTTP/1.1 upgrade. Only use it against servers known to speak
	// h2c.
	HTTP2PriorKnowledge bool

	// TLSClientConfig is the TLS configuration for "https" URLs. Nil
	// means sane defaults. The HTTPTransport clones it and manages the
	// clone's ALPN protocol list itself.
	TLSClientConfig *tls.Config
}

// DefaultConfig returns the default transport settings: 10 second
// connect and TLS handshake bounds, and net/http's stock idle
// connection policy of up to 100 idle connections overall, 10 per
// host, kept for 90 seconds.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:      10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}
}

func (c Config) validate() error {
	if c.ConnectTimeout < 0 {
		return uferrors.Configf("connect_timeout cannot be negative, got %v", c.ConnectTimeout)
	}
	if c.TLSHandshakeTimeout < 0 {
		return uferrors.Configf("tls_handshake_timeout cannot be negative, got %v", c.TLSHandshakeTimeout)
	}
	if c.IdleConnTimeout < 0 {
		return uferrors.Configf("idle_conn_timeout cannot be negative, got %v", c.IdleConnTimeout)
	}
	if c.MaxIdleConns < 0 {
		return uferrors.Configf("max_idle_conns cannot be negative, got %d", c.MaxIdleConns)
	}
	if c.MaxIdleConnsPerHost < 0 {
		return uferrors.Configf("max_idle_conns_per_host cannot be negative, got %d", c.MaxIdleConnsPerHost)
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = d.IdleConnTimeout
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = d.MaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = d.MaxIdleConnsPerHost
	}
	return c
}

// transport builds one net/http transport from the config. Each
// round-tripper inside an HTTPTransport gets its own instance so their
// connection pools stay separate.
func (c Config) transport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   c.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       c.TLSClientConfig.Clone(),
		TLSHandshakeTimeout:   c.TLSHandshakeTimeout,
		IdleConnTimeout:       c.IdleConnTimeout,
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		ExpectContinueTimeout: time.Second,
	}
}
