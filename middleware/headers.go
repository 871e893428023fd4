// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// MaxHeaderBytes is the largest combined key plus value size of a
// header contribution the stack will merge into a request. Larger
// contributions are dropped.
const MaxHeaderBytes = 8192

// RequestIDHeader is the header WithRequestID stamps.
const RequestIDHeader = "X-Request-Id"

// A HeaderInjector contributes default headers to outgoing requests.
//
// Inject writes the middleware's contribution into a scratch header.
// The stack merges the scratch into the real request header
// absent-only, so a key the caller (or an earlier injector) already
// set is never replaced. Contributions with an empty key or value, a
// NUL byte, or a combined size above MaxHeaderBytes are dropped during
// the merge.
type HeaderInjector interface {
	Middleware
	Inject(http.Header)
}

// StaticHeaders is a header-injecting middleware contributing a fixed
// header set, optionally extended with a per-attempt request ID.
type StaticHeaders struct {
	name      string
	headers   map[string]string
	requestID bool
}

// A HeaderOption configures a StaticHeaders middleware.
type HeaderOption func(*StaticHeaders)

// WithRequestID configures a StaticHeaders middleware to stamp a fresh
// UUID into the X-Request-Id header of each attempt whose request does
// not already carry one.
func WithRequestID() HeaderOption {
	return func(h *StaticHeaders) { h.requestID = true }
}

// NewStaticHeaders returns a header-injecting middleware contributing
// the given header set. The map is copied, so later changes to it do
// not affect the middleware. Combine with DefaultHeaders to restore
// the library's standard defaults:
//
//	std := middleware.NewStaticHeaders("std", middleware.DefaultHeaders(), middleware.WithRequestID())
func NewStaticHeaders(name string, headers map[string]string, opts ...HeaderOption) *StaticHeaders {
	h := &StaticHeaders{name: name, headers: make(map[string]string, len(headers))}
	for k, v := range headers {
		h.headers[k] = v
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the middleware's name.
func (h *StaticHeaders) Name() string { return h.name }

// Inject writes the configured header set, plus a fresh request ID
// when WithRequestID was given, into scratch.
func (h *StaticHeaders) Inject(scratch http.Header) {
	for k, v := range h.headers {
		scratch.Set(k, v)
	}
	if h.requestID {
		scratch.Set(RequestIDHeader, uuid.NewString())
	}
}

// DefaultHeaders returns the library's standard header contribution: a
// User-Agent identifying the library, a wildcard Accept, an
// Accept-Encoding advertising the encodings the client decodes
// transparently, and a keep-alive Connection hint (which the transport
// translates into connection reuse rather than sending on the wire
// where the protocol forbids it).
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "ultrafast-client/1.0",
		"Accept":          "*/*",
		"Accept-Encoding": "gzip, deflate",
		"Connection":      "keep-alive",
	}
}

// mergeAbsent copies the valid contributions in src whose keys are
// absent from dst.
func mergeAbsent(dst, src http.Header) {
	for k, vs := range src {
		if _, ok := dst[k]; ok {
			continue
		}
		var keep []string
		for _, v := range vs {
			if validHeader(k, v) {
				keep = append(keep, v)
			}
		}
		if len(keep) > 0 {
			dst[k] = keep
		}
	}
}

// validHeader reports whether a contributed header may be merged into
// a request: non-empty key and value, no NUL bytes, and a combined
// size of at most MaxHeaderBytes.
func validHeader(key, value string) bool {
	return key != "" && value != "" &&
		len(key)+len(value) <= MaxHeaderBytes &&
		!strings.Contains(key, "\x00") &&
		!strings.Contains(value, "\x00")
}
