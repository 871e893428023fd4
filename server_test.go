// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package ultrafast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/techgopal/ultrafast-client/protocol"
	"github.com/techgopal/ultrafast-client/request"
	"github.com/techgopal/ultrafast-client/retry"
	"github.com/techgopal/ultrafast-client/timeout"
	"github.com/techgopal/ultrafast-client/transport"
)

var httpServer = httptest.NewUnstartedServer(http.HandlerFunc(serverHandler))
var httpsServer = httptest.NewUnstartedServer(http.HandlerFunc(serverHandler))
var http2Server = httptest.NewUnstartedServer(http.HandlerFunc(serverHandler))
var servers = []*httptest.Server{httpServer, httpsServer, http2Server}

func TestMain(m *testing.M) {
	httpServer.Start()
	defer httpServer.Close()
	httpsServer.StartTLS()
	defer httpsServer.Close()
	http2Server.EnableHTTP2 = true
	http2Server.StartTLS()
	defer http2Server.Close()
	waitForServerStart(httpServer)
	waitForServerStart(httpsServer)
	waitForServerStart(http2Server)
	os.Exit(m.Run())
}

func waitForServerStart(server *httptest.Server) {
	cl := &Client{
		Transport:     serverTransport(server),
		RetryPolicy:   retry.NewPolicy(retry.Before(10*time.Second).And(retry.TransientErr), retry.DefaultWaiter),
		TimeoutPolicy: timeout.Fixed(2 * time.Second),
	}
	p := (&serverInstruction{StatusCode: 200}).toPlan(context.Background(), "GET", server)
	e, err := cl.Do(p)
	if e.StatusCode() != 200 {
		panic(fmt.Sprintf("Test server startup failed with status %d and error %v",
			e.StatusCode(), err))
	}
}

// doerTransport adapts the pre-configured *http.Client an httptest
// server mints (trusted test CA, HTTP/2 where enabled) into a
// transport.Transport so the test servers can sit behind the engine.
// The version hint is ignored; the test client's own TLS setup fixes
// the protocol per server.
type doerTransport struct {
	cl *http.Client
}

func (t doerTransport) Send(req *http.Request, _ protocol.Version) (*http.Response, error) {
	return t.cl.Do(req)
}

func serverTransport(server *httptest.Server) transport.Transport {
	return doerTransport{cl: server.Client()}
}

func serverName(server *httptest.Server) string {
	switch server {
	case httpServer:
		return "http"
	case httpsServer:
		return "https"
	case http2Server:
		return "http2"
	default:
		panic("unknown server")
	}
}

type bodyChunk struct {
	Pause time.Duration
	Data  []byte
}

type serverInstruction struct {
	HeaderPause time.Duration
	StatusCode  int
	Body        []bodyChunk
}

func (i *serverInstruction) zero() bool {
	return i.HeaderPause == time.Duration(0) &&
		i.StatusCode == 0 &&
		i.Body == nil
}

func (i *serverInstruction) toJSON() []byte {
	if i.zero() {
		return nil
	}

	b, err := json.Marshal(i)
	if err != nil {
		panic(err)
	}

	return b
}

func (i *serverInstruction) toPlan(ctx context.Context, method string, server *httptest.Server) *request.Plan {
	p, err := request.NewPlanWithContext(ctx, method, server.URL, i.toJSON())
	if err != nil {
		panic(err)
	}

	return p
}

func (i *serverInstruction) fromJSON(b []byte) error {
	return json.Unmarshal(b, i)
}

func (i *serverInstruction) fromRequest(req *http.Request) error {
	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()

	if err != nil {
		return err
	}

	return i.fromJSON(b)
}

// serverHandler responds per the serverInstruction encoded in the
// request body: it pauses before writing headers, then streams the body
// chunks with their pauses spread byte by byte, flushing as it goes so
// the client side can exercise header and body timeouts.
func serverHandler(w http.ResponseWriter, req *http.Request) {
	var i serverInstruction
	err := i.fromRequest(req)
	if err != nil {
		w.WriteHeader(400)
		_, _ = io.WriteString(w, fmt.Sprintf("failed to read request: %s", err.Error()))
		return
	}

	if i.StatusCode == 0 {
		w.WriteHeader(400)
		_, _ = io.WriteString(w, fmt.Sprintf("bad StatusCode in instruction: %v", i))
		return
	}

	f, ok := w.(http.Flusher)
	if !ok {
		panic("w does not implement Flusher")
	}

	contentLength := 0
	for _, chunk := range i.Body {
		contentLength += len(chunk.Data)
	}

	header := w.Header()
	header.Add("Content-Length", strconv.Itoa(contentLength))

	time.Sleep(i.HeaderPause)

	w.WriteHeader(i.StatusCode)
	f.Flush()

	for _, chunk := range i.Body {
		data := chunk.Data
		pause := chunk.Pause

		if len(data) > 0 {
			// Spread the chunk's pause across its bytes, flushing after
			// every byte so partial bodies reach the client.
			ppb := chunk.Pause / time.Duration(len(data))
			for i := range data {
				b := data[i : i+1]
				_, err = w.Write(b)
				if err != nil {
					return
				}
				f.Flush()
				time.Sleep(ppb)
				pause -= ppb
			}
		}

		if pause > 0 {
			time.Sleep(pause)
		}
	}
}
