// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package protocol

import "time"

// Capabilities describes which protocol versions one host can serve.
type Capabilities struct {
	// MaxVersion is the highest version the host is known to speak.
	MaxVersion Version
	// HTTP2 reports whether the host negotiated, or is assumed to
	// accept, HTTP/2.
	HTTP2 bool
	// HTTP3 reports whether the host is known to accept HTTP/3.
	HTTP3 bool
	// ALPN lists the host's protocol identifiers in preference order,
	// for example ["h2", "http/1.1"].
	ALPN []string
	// ConnectTime is how long the detection handshake took, when the
	// capabilities came from a live probe.
	ConnectTime time.Duration
}

// Baseline returns the capabilities every HTTP host has: HTTP/1.1
// only. Detectors fall back to it when a host cannot be probed.
func Baseline() Capabilities {
	return Capabilities{
		MaxVersion: V1,
		ALPN:       []string{"http/1.1"},
	}
}

// Optimistic returns capabilities that assume full modern protocol
// support. Useful with a StaticDetector when probing is undesirable
// and the embedder knows its hosts.
func Optimistic() Capabilities {
	return Capabilities{
		MaxVersion: V3,
		HTTP2:      true,
		HTTP3:      true,
		ALPN:       []string{"h3", "h2", "http/1.1"},
	}
}

// Supports reports whether the host can serve v. HTTP/1.1 is always
// supported.
func (c Capabilities) Supports(v Version) bool {
	switch v {
	case V1:
		return true
	case V2:
		return c.HTTP2
	case V3:
		return c.HTTP3
	default:
		return false
	}
}
