// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package protocol

// A Version identifies an HTTP protocol version, or Auto to let the
// Negotiator choose per host.
type Version int

const (
	// Auto defers the choice to per-host negotiation.
	Auto Version = iota
	// V1 is HTTP/1.1.
	V1
	// V2 is HTTP/2.
	V2
	// V3 is HTTP/3.
	V3
)

var versionNames = []string{"auto", "HTTP/1.1", "HTTP/2", "HTTP/3"}

// String returns the version in "HTTP/2" form, or "auto".
func (v Version) String() string {
	if v < Auto || v > V3 {
		return "unknown"
	}
	return versionNames[v]
}

// Valid reports whether v is one of the defined versions.
func (v Version) Valid() bool {
	return v >= Auto && v <= V3
}

// ParseVersion maps a wire protocol name, as found in
// http.Response.Proto, to a Version. Unrecognized names map to Auto.
func ParseVersion(proto string) Version {
	switch proto {
	case "HTTP/1.0", "HTTP/1.1":
		return V1
	case "HTTP/2", "HTTP/2.0":
		return V2
	case "HTTP/3", "HTTP/3.0":
		return V3
	default:
		return Auto
	}
}
