// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/http2"

	uferrors "github.com/techgopal/ultrafast-client/errors"
	"github.com/techgopal/ultrafast-client/protocol"
)

// A Transport sends one HTTP request attempt over the wire, using the
// protocol version the hint names when the target can serve it.
//
// Implementations of Transport must be safe for concurrent use by
// multiple goroutines. The response's Proto field reports the protocol
// that actually served the attempt, which may differ from the hint;
// the client feeds it back into protocol negotiation either way.
type Transport interface {
	Send(req *http.Request, hint protocol.Version) (*http.Response, error)
}

// DefaultTransport is an HTTPTransport built from DefaultConfig. It is
// used by clients whose Transport field is nil.
var DefaultTransport = mustNew(DefaultConfig())

// HTTPTransport serves HTTP/1.1 and HTTP/2 using net/http and
// golang.org/x/net/http2. It keeps one round-tripper per wire
// strategy, each with its own connection pool, so that pinning a host
// to HTTP/1.1 never evicts its negotiated HTTP/2 connections and vice
// versa.
type HTTPTransport struct {
	config Config
	h1     *http.Client // ALPN restricted to http/1.1
	auto   *http.Client // ALPN h2 + http/1.1; serves Auto, V2 and V3 hints
	h2c    *http.Client // prior-knowledge HTTP/2 over cleartext TCP, nil unless enabled
}

// New constructs an HTTPTransport from the given configuration.
func New(c Config) (*HTTPTransport, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	c = c.withDefaults()

	t1 := c.transport()
	// A non-nil empty TLSNextProto map disables the ALPN upgrade, so
	// this round-tripper always speaks HTTP/1.1.
	t1.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)

	t2 := c.transport()
	if _, err := http2.ConfigureTransports(t2); err != nil {
		return nil, uferrors.Configf("http2 transport: %v", err)
	}

	ht := &HTTPTransport{
		config: c,
		h1:     &http.Client{Transport: t1},
		auto:   &http.Client{Transport: t2},
	}
	if c.HTTP2PriorKnowledge {
		ht.h2c = &http.Client{Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				d := &net.Dialer{Timeout: c.ConnectTimeout}
				return d.DialContext(ctx, network, addr)
			},
		}}
	}
	return ht, nil
}

// Config returns the configuration the transport was built with,
// normalized with defaults.
func (t *HTTPTransport) Config() Config {
	return t.config
}

// Send executes one request attempt. Redirects are followed with
// net/http's default policy. A returned error is classified into the
// module taxonomy where the failure class is recognizable; caller
// context cancellation passes through unchanged.
func (t *HTTPTransport) Send(req *http.Request, hint protocol.Version) (*http.Response, error) {
	resp, err := t.pick(req.URL, hint).Do(req)
	if err != nil {
		return nil, classify(req.URL.Host, err)
	}
	return resp, nil
}

// CloseIdleConnections drops the idle kept-alive connections held by
// every round-tripper.
func (t *HTTPTransport) CloseIdleConnections() {
	t.h1.CloseIdleConnections()
	t.auto.CloseIdleConnections()
	if t.h2c != nil {
		t.h2c.CloseIdleConnections()
	}
}

func (t *HTTPTransport) pick(u *url.URL, hint protocol.Version) *http.Client {
	switch hint {
	case protocol.V1:
		return t.h1
	case protocol.V2:
		if u.Scheme != "https" {
			// net/http cannot upgrade a cleartext connection to h2
			// without prior knowledge.
			if t.h2c != nil {
				return t.h2c
			}
			return t.h1
		}
		return t.auto
	default:
		// Auto, and V3 until an embedder supplies a QUIC-capable
		// Transport: ALPN picks the best protocol the host offers.
		return t.auto
	}
}

func classify(host string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &uferrors.TimeoutError{Host: host, Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &uferrors.TimeoutError{Host: host, Cause: err}
	}
	var oe *net.OpError
	if errors.As(err, &oe) && (oe.Op == "dial" || oe.Op == "proxyconnect") {
		return &uferrors.ConnectionError{Host: host, Cause: err}
	}
	var se http2.StreamError
	var ge http2.GoAwayError
	var ce http2.ConnectionError
	if errors.As(err, &se) || errors.As(err, &ge) || errors.As(err, &ce) {
		return &uferrors.ProtocolError{Host: host, Proto: "HTTP/2", Cause: err}
	}
	return err
}

func mustNew(c Config) *HTTPTransport {
	t, err := New(c)
	if err != nil {
		panic("ultrafast/transport: " + err.Error())
	}
	return t
}
