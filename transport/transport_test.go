// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	uferrors "github.com/techgopal/ultrafast-client/errors"
	"github.com/techgopal/ultrafast-client/protocol"
	"github.com/techgopal/ultrafast-client/transient"
)

func TestSendHTTP1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(protoEcho))
	defer srv.Close()

	ht, err := New(Config{})
	require.NoError(t, err)

	for _, hint := range []protocol.Version{protocol.V1, protocol.Auto} {
		resp := send(t, ht, srv.URL, hint)
		assert.Equal(t, "HTTP/1.1", string(resp))
	}
}

func TestSendHTTP2(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(protoEcho))
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	ht, err := New(Config{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}})
	require.NoError(t, err)

	assert.Equal(t, "HTTP/2.0", string(send(t, ht, srv.URL, protocol.V2)))
	assert.Equal(t, "HTTP/2.0", string(send(t, ht, srv.URL, protocol.Auto)))
	// Without a QUIC stack an HTTP/3 hint rides the best negotiated
	// protocol.
	assert.Equal(t, "HTTP/2.0", string(send(t, ht, srv.URL, protocol.V3)))
	// A pinned HTTP/1.1 hint must not upgrade.
	assert.Equal(t, "HTTP/1.1", string(send(t, ht, srv.URL, protocol.V1)))
}

func TestSendH2C(t *testing.T) {
	srv := httptest.NewServer(h2c.NewHandler(http.HandlerFunc(protoEcho), &http2.Server{}))
	defer srv.Close()

	with, err := New(Config{HTTP2PriorKnowledge: true})
	require.NoError(t, err)
	without, err := New(Config{})
	require.NoError(t, err)

	assert.Equal(t, "HTTP/2.0", string(send(t, with, srv.URL, protocol.V2)))
	// Without prior knowledge a cleartext URL cannot be served as h2.
	assert.Equal(t, "HTTP/1.1", string(send(t, without, srv.URL, protocol.V2)))
}

func TestSendFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "done")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ht, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "done", string(send(t, ht, srv.URL+"/start", protocol.Auto)))
}

func TestSendConnectionRefused(t *testing.T) {
	ht, err := New(Config{})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/", nil)
	require.NoError(t, err)
	_, err = ht.Send(req, protocol.Auto)
	require.Error(t, err)
	assert.True(t, uferrors.IsRetryable(err))
	var ce *uferrors.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "127.0.0.1:1", ce.Host)
}

func TestSendAttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	ht, err := New(Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = ht.Send(req, protocol.Auto)
	require.Error(t, err)
	assert.True(t, uferrors.IsTimeout(err))
	assert.Equal(t, transient.Timeout, transient.Categorize(err))
}

func TestSendCancelPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(protoEcho))
	defer srv.Close()

	ht, err := New(Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = ht.Send(req, protocol.Auto)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, uferrors.IsTimeout(err))
	assert.False(t, uferrors.IsRetryable(err))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("h:443", nil))

	cancel := &url.Error{Op: "Get", URL: "http://h/", Err: context.Canceled}
	assert.Equal(t, error(cancel), classify("h:443", cancel))

	deadline := &url.Error{Op: "Get", URL: "http://h/", Err: context.DeadlineExceeded}
	var te *uferrors.TimeoutError
	require.ErrorAs(t, classify("h:443", deadline), &te)
	assert.Equal(t, "h:443", te.Host)

	dial := &url.Error{Op: "Get", URL: "http://h/", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}
	var ce *uferrors.ConnectionError
	require.ErrorAs(t, classify("h:443", dial), &ce)

	goaway := &url.Error{Op: "Get", URL: "http://h/", Err: http2.GoAwayError{}}
	var pe *uferrors.ProtocolError
	require.ErrorAs(t, classify("h:443", goaway), &pe)
	assert.Equal(t, "HTTP/2", pe.Proto)

	other := errors.New("not ours to classify")
	assert.Equal(t, other, classify("h:443", other))
}

func TestCloseIdleConnections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(protoEcho))
	defer srv.Close()

	ht, err := New(Config{HTTP2PriorKnowledge: true})
	require.NoError(t, err)
	send(t, ht, srv.URL, protocol.V1)
	ht.CloseIdleConnections()
	// The transport must stay usable afterward.
	assert.Equal(t, "HTTP/1.1", string(send(t, ht, srv.URL, protocol.V1)))
}

func TestDefaultTransport(t *testing.T) {
	require.NotNil(t, DefaultTransport)
	assert.Equal(t, DefaultConfig(), DefaultTransport.Config())
}

func protoEcho(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, r.Proto)
}

func send(t *testing.T, ht *HTTPTransport, rawURL string, hint protocol.Version) []byte {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	resp, err := ht.Send(req, hint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}
