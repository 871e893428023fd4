// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package ultrafast provides a high-performance HTTP client engine with
connection pooling, rate-limit admission, retries with circuit
breaking, and adaptive protocol version negotiation within a simple
and familiar interface.

Create a Client to begin making requests.

	client := &ultrafast.Client{}
	ex, err := client.Get("https://www.example.com")
	...
	ex, err := client.Post("https://www.example.com/upload",
		"application/json", &buf)
	...
	ex, err := client.PostForm("http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

Every subsystem is optional. The zero value client retries per
retry.DefaultPolicy, bounds attempts per timeout.DefaultPolicy, and
sends them on transport.DefaultTransport; nothing else runs. Wire in
the subsystems a deployment needs:

	limiter, err := ratelimit.New(ratelimit.Moderate())
	...
	mux, err := pool.NewMultiplexer(pool.DefaultConfig())
	...
	neg, err := protocol.New(protocol.Config{}, nil)
	...
	stack := middleware.NewStack()
	err = stack.Add(middleware.NewRateLimitGate("limiter", limiter))
	...
	client := &ultrafast.Client{
		Middleware: stack,
		Negotiator: neg,
		Pool:       mux,
		Breaker:    retry.DefaultBreaker(),
		Stats:      stats.NewStore(),
	}

For control over how attempts hit the wire (connect timeouts, TLS
configuration, HTTP/2 via ALPN or prior-knowledge h2c), build a custom
transport with package transport, or implement transport.Transport
directly:

	tr, err := transport.New(transport.Config{
		ConnectTimeout:      5 * time.Second,
		HTTP2PriorKnowledge: true,
	})
	...
	client := &ultrafast.Client{
		Transport: tr,
	}

For control over the client's retry decisions and timing, create a
custom retry policy using components from package retry:

	waiter := retry.NewBackoffWaiter(500*time.Millisecond, 30*time.Second, 2.0, retry.JitterDefault)
	retryPolicy := retry.NewPolicy(retry.DefaultDecider, waiter)
	client := &ultrafast.Client{
		RetryPolicy: retryPolicy,
	}

For control over the client's individual attempt timeouts, set a custom
timeout policy using package timeout:

	client := &ultrafast.Client{
		TimeoutPolicy: timeout.Fixed(10 * time.Second),
	}

To hook into the fine-grained details of the client's request execution
logic, register an interceptor on the middleware stack:

	stack := middleware.NewStack()
	err := stack.Add(middleware.NewInterceptor("trace",
		func(evt middleware.Event, e *request.Execution) {
			if evt == middleware.BeforeAttempt {
				log.Printf("attempt %d to %s", e.Attempt, e.Request.URL)
			}
		}))
	...
	client := &ultrafast.Client{
		Middleware: stack,
	}

Package ultrafast provides basic interfaces for each method of the
client (Doer, Getter, Header, Poster, FormPoster, Putter, Patcher,
Deleter, and IdleCloser); a combined interface that composes all the
basic methods (Executor); and utility functions for working with a
Doer (Inflate, Get, Head, Post, PostForm, Put, Patch, and Delete).

# Concurrency

All of the module's exported types are safe for concurrent use by
multiple goroutines unless their documentation says otherwise. The
subsystems keep their locking shallow: no subsystem lock is held
across a call into another subsystem, and no lock is held across
network activity. Within the subsystems that keep per-host state the
locks nest in one direction only (the host map, then one host's state,
then that host's statistics), so creating hosts, serving admissions,
and reading snapshots cannot deadlock.
*/
package ultrafast
