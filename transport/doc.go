// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport sends individual HTTP request attempts over the
// wire, honoring the protocol version hint the client's negotiator
// selected for the attempt.
//
// The Transport interface is the seam between the client engine and
// the network. The bundled HTTPTransport serves HTTP/1.1 and HTTP/2
// (via TLS ALPN, or over cleartext TCP when prior knowledge is
// configured) on top of net/http and golang.org/x/net/http2. An
// HTTP/3 hint is served by the best protocol the host actually
// negotiates; embedders with a QUIC stack can supply their own
// Transport implementation instead.
//
// Send follows redirects with net/http's default policy and reports
// failures classified into the module's error taxonomy: timeouts as
// TimeoutError, dial failures as ConnectionError, and HTTP/2 stream or
// connection breakage as ProtocolError.
package transport
