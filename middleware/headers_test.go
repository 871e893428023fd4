// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaticHeaders(t *testing.T) {
	src := map[string]string{"X-Env": "prod"}
	h := NewStaticHeaders("std", src)
	assert.Equal(t, "std", h.Name())

	// The header set was copied at construction time.
	src["X-Env"] = "changed"
	scratch := make(http.Header)
	h.Inject(scratch)
	assert.Equal(t, "prod", scratch.Get("X-Env"))
}

func TestWithRequestID(t *testing.T) {
	h := NewStaticHeaders("id", nil, WithRequestID())

	s1 := make(http.Header)
	s2 := make(http.Header)
	h.Inject(s1)
	h.Inject(s2)

	id1 := s1.Get(RequestIDHeader)
	id2 := s2.Get(RequestIDHeader)
	_, err := uuid.Parse(id1)
	assert.NoError(t, err)
	_, err = uuid.Parse(id2)
	assert.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	t.Run("caller's request ID wins", func(t *testing.T) {
		s := &Stack{}
		require.NoError(t, s.Add(h))
		hdr := make(http.Header)
		hdr.Set(RequestIDHeader, "caller-chosen")
		got := s.InjectHeaders(hdr)
		assert.Equal(t, "caller-chosen", got.Get(RequestIDHeader))
	})
}

func TestDefaultHeaders(t *testing.T) {
	h := DefaultHeaders()
	assert.Equal(t, "ultrafast-client/1.0", h["User-Agent"])
	assert.Equal(t, "*/*", h["Accept"])
	assert.Equal(t, "gzip, deflate", h["Accept-Encoding"])
	assert.Equal(t, "keep-alive", h["Connection"])
	assert.Len(t, h, 4)
}

func TestValidHeader(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
		valid bool
	}{
		{"simple", "Accept", "*/*", true},
		{"empty key", "", "x", false},
		{"empty value", "X-Empty", "", false},
		{"nul in key", "X-\x00Key", "x", false},
		{"nul in value", "X-Key", "a\x00b", false},
		{"at size limit", "K", strings.Repeat("v", MaxHeaderBytes-1), true},
		{"over size limit", "K", strings.Repeat("v", MaxHeaderBytes), false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.valid, validHeader(testCase.key, testCase.value))
		})
	}
}
