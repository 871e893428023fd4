// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package ultrafast

import (
	"context"
	"io"
	"net/url"
	"sync/atomic"
	"time"

	uferrors "github.com/techgopal/ultrafast-client/errors"
	"github.com/techgopal/ultrafast-client/middleware"
	"github.com/techgopal/ultrafast-client/pool"
	"github.com/techgopal/ultrafast-client/protocol"
	"github.com/techgopal/ultrafast-client/request"
	"github.com/techgopal/ultrafast-client/retry"
	"github.com/techgopal/ultrafast-client/stats"
	"github.com/techgopal/ultrafast-client/timeout"
	"github.com/techgopal/ultrafast-client/transport"
)

var emptyStack = middleware.Stack{}

// A Client executes HTTP request plans with retries, per-attempt
// timeouts, rate-limit admission, circuit breaking, connection
// pooling, and adaptive protocol negotiation. Its zero value is a
// valid configuration.
//
// The zero value client sends attempts on transport.DefaultTransport,
// times them per timeout.DefaultPolicy, retries them per
// retry.DefaultPolicy, and leaves every optional subsystem (middleware
// stack, circuit breaker, protocol negotiator, connection pool,
// statistics store) switched off.
//
// Client's Transport typically has internal state (cached TCP and TLS
// connections) so Client instances should be reused instead of created
// as needed. Client is safe for concurrent use by multiple goroutines.
//
// A Client is higher-level than a transport.Transport. The Transport
// owns the mechanics of a single HTTP exchange, while Client builds
// the request execution engine on top of it:
//
// • Client reads and buffers the entire HTTP response body into a
// []byte (returned as the Execution.Body field);
//
// • Client retries failed request attempts using a customizable retry
// policy, and suppresses retries when the circuit breaker reports too
// high an error rate over recent attempts;
//
// • Client sets individual request attempt timeouts using a
// customizable timeout policy;
//
// • Client runs each attempt through the middleware stack: admission
// gates before any network activity, header injection into the
// outgoing request, loggers around the wire exchange, metrics
// recorders and interceptor plug-in points as the attempt progresses;
//
// • Client asks the protocol negotiator for a per-host version hint
// before each attempt and feeds the outcome back, so version selection
// improves with traffic;
//
// • Client bounds per-host concurrency through the connection pool
// multiplexer, reporting each permit's outcome so pool statistics
// track reuse and latency; and
//
// • Client implements the ultrafast.Executor interface.
//
// Client's HTTP methods should feel familiar to anyone who has used
// the Go standard HTTP client (http.Client). The methods use the same
// names, and follow the same rough parameter schema, as the Go
// standard client. The main differences are:
//
// • instead of consuming an http.Request, which is only suitable for
// making a one-off request attempt, Client.Do consumes a request.Plan
// which is suitable for making multiple attempts if necessary (the
// plan execution logic converts the plan into http.Request as needed);
// and
//
// • instead of producing an http.Response, all of Client's HTTP
// methods return a request.Execution, which contains some metadata
// about the plan execution as well as a fully-buffered response body.
type Client struct {
	// Transport specifies the mechanics of sending a single HTTP
	// request attempt and receiving its response, given a protocol
	// version hint.
	//
	// If Transport is nil, transport.DefaultTransport is used.
	Transport transport.Transport
	// RetryPolicy decides when to retry failed attempts and how long
	// to sleep after a failed attempt before retrying. A retry
	// advisor registered on the middleware stack takes precedence
	// over this field.
	//
	// If RetryPolicy is nil, retry.DefaultPolicy is used.
	RetryPolicy retry.Policy
	// TimeoutPolicy specifies how to set timeouts on individual
	// request attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Breaker records the outcome of every attempt that reaches the
	// Transport and suppresses retries while the error rate over its
	// window stays above the threshold. A plan whose retry is
	// suppressed fails with *errors.CircuitOpenError.
	//
	// If Breaker is nil, retries are never suppressed.
	Breaker *retry.Breaker
	// Middleware holds the admission gates, header injectors,
	// loggers, retry advisors, metrics recorders, and interceptors to
	// run at their designated points within the attempt/retry loop.
	//
	// If Middleware is nil, no middleware is run.
	Middleware *middleware.Stack
	// Negotiator picks the protocol version to attempt per host and
	// learns per-host preferences from attempt outcomes.
	//
	// If Negotiator is nil, every attempt is sent with the Auto hint
	// and the Transport's own negotiation applies.
	Negotiator *protocol.Negotiator
	// Pool bounds concurrent attempts per host and tracks connection
	// slot reuse. A permit is acquired before each attempt is sent
	// and always released when the attempt concludes.
	//
	// If Pool is nil, attempt concurrency is bounded only by the
	// Transport.
	Pool *pool.Multiplexer
	// Stats accumulates per-host request statistics for every attempt
	// that reaches the Transport.
	//
	// If Stats is nil, no statistics are recorded.
	Stats *stats.Store

	// failStreak counts consecutive failed attempts across all of the
	// client's executions. Any successful attempt resets it. Each
	// execution snapshots it into Execution.FailStreak, where backoff
	// waiters read it to penalize a client that keeps failing.
	failStreak atomic.Int64
}

// Do executes an HTTP request plan and returns the results, following
// the retry, timeout, admission, circuit breaking, pooling, and
// protocol selection behavior configured on Client.
//
// The result returned is the result of the final HTTP request attempt
// made during the plan execution, as determined by the retry policy.
//
// An error is returned if, after doing any retries mandated by the
// retry policy, the final attempt resulted in an error. An attempt may
// end in error before any network activity (a rate-limit gate
// rejected it, or no connection permit could be acquired), because of
// failure to speak HTTP (for example a network connectivity problem),
// or because of policy in the engine (such as an attempt timeout). A
// non-2XX status code in the final attempt does not result in an
// error.
//
// Errors raised by the engine belong to this module's errors package:
// a rate-limit rejection surfaces as *errors.RateLimitError (carrying
// a wait hint) or *errors.QueueFullError and is terminal, since
// retrying a request the local limiter just rejected would only
// reload it; a retry suppressed by the circuit breaker fails with
// *errors.CircuitOpenError; and a plan that still ends in error after
// one or more retries has its final error annotated as
// *errors.ExhaustedError carrying the retry count and cause. A plan
// whose context is cancelled, or whose context deadline expires,
// returns the context's error. Transport failures are classified as
// *errors.ConnectionError, *errors.TimeoutError, or
// *errors.ProtocolError before they reach the retry policy.
//
// The returned Execution is never nil, but may contain a nil Response
// and will contain a nil Body if an error occurred (if the final HTTP
// request attempt caused an error, both Response and Body are nil, but
// if the attempt succeeded and the error occurred while reading Body
// from the response, then Response is non-nil but Body is nil). If an
// error was returned, the Err field of the Execution references the
// same error.
//
// If the returned error is nil, the returned Execution will contain
// both a non-nil Response and a non-nil Body (although Body may have
// zero length).
//
// For simple use cases, the Get, Head, Post, PostForm, Put, Patch,
// and Delete methods may prove easier to use than Do.
func (c *Client) Do(p *request.Plan) (*request.Execution, error) {
	e := request.Execution{
		Plan:       p,
		Host:       p.TargetHost(),
		FailStreak: int(c.failStreak.Load()),
	}

	t := c.transport()
	stack := c.stack()

	timeoutPolicy := c.TimeoutPolicy
	if timeoutPolicy == nil {
		timeoutPolicy = timeout.DefaultPolicy
	}

	retryPolicy := c.RetryPolicy
	if retryPolicy == nil {
		retryPolicy = retry.DefaultPolicy
	}
	if advised := stack.RetryPolicy(); advised != nil {
		retryPolicy = advised
	}

	stack.On(middleware.BeforeExecutionStart, &e)
	e.Start = time.Now()

RetryLoop:
	for {
		c.attempt(&e, t, stack, timeoutPolicy)
		if e.Timeout() {
			e.AttemptTimeouts++
			stack.On(middleware.AfterAttemptTimeout, &e)
		}
		stack.On(middleware.AfterAttempt, &e)
		planCtxErr := p.Context().Err()
		if planCtxErr == context.DeadlineExceeded {
			stack.On(middleware.AfterPlanTimeout, &e)
			break
		} else if planCtxErr != nil {
			e.Err = planCtxErr
			break
		} else if uferrors.IsRateLimit(e.Err) {
			// The local limiter said no. Retrying would only reload
			// it; the error's wait hint tells the caller when to come
			// back.
			break
		} else if retryPolicy.Decide(&e) {
			if c.Breaker != nil && c.Breaker.Tripped() {
				e.Err = &uferrors.CircuitOpenError{
					ErrorRate: c.Breaker.ErrorRate(),
					Window:    c.Breaker.Window(),
				}
				break
			}
			wait := retryPolicy.Wait(&e)
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-p.Context().Done():
				timer.Stop()
				err := p.Context().Err()
				e.Err = err
				if err == context.DeadlineExceeded {
					stack.On(middleware.AfterPlanTimeout, &e)
				}
				break RetryLoop
			}
			e.Response = nil
			e.Err = nil
			e.Body = nil
			e.Attempt++
		} else {
			if e.Err != nil && e.Attempt > 0 {
				e.Err = &uferrors.ExhaustedError{Retries: e.Attempt, Cause: e.Err}
			}
			break
		}
	}

	e.End = time.Now()
	stack.On(middleware.AfterExecutionEnd, &e)
	return &e, e.Err
}

// attempt runs one request attempt end to end: admission, protocol
// selection, permit acquisition, request construction and header
// injection, the wire exchange, body buffering, and the feedback
// fan-out. The outcome is recorded on e.
func (c *Client) attempt(e *request.Execution, t transport.Transport, stack *middleware.Stack, timeoutPolicy timeout.Policy) {
	p := e.Plan
	e.AttemptDuration = 0
	e.Reused = false

	if err := stack.Admit(p.Context(), e.Host); err != nil {
		e.Err = err
		stack.LogError(e)
		stack.Record(e)
		return
	}

	hint := protocol.Auto
	if c.Negotiator != nil {
		hint = c.Negotiator.Select(p.Context(), p.URL)
		e.Protocol = hint.String()
	}

	var permit *pool.Permit
	if c.Pool != nil {
		var err error
		permit, err = c.Pool.Acquire(p.Context(), e.Host)
		if err != nil {
			e.Err = err
			stack.LogError(e)
			stack.Record(e)
			return
		}
		defer permit.Release()
		e.Reused = permit.Reused()
	}

	ctx, cancel := context.WithTimeout(p.Context(), timeoutPolicy.Timeout(e))
	defer cancel()
	e.Request = p.ToRequest(ctx)
	e.Request.Header = stack.InjectHeaders(e.Request.Header)
	stack.On(middleware.BeforeAttempt, e)
	stack.LogRequest(e)

	start := time.Now()
	var err error
	e.Response, err = t.Send(e.Request, hint)
	if err != nil {
		e.AttemptDuration = time.Since(start)
		e.Err = err
	} else {
		readBody(e, stack)
		e.AttemptDuration = time.Since(start)
		e.Protocol = e.Response.Proto
	}

	c.conclude(e, permit)
	if e.Err != nil {
		stack.LogError(e)
	} else {
		stack.LogResponse(e)
	}
	stack.Record(e)
}

// conclude folds one concluded wire attempt into the client's feedback
// surfaces: the failure streak, the circuit breaker, the connection
// permit, the protocol negotiator, and the statistics store. Attempts
// rejected before reaching the Transport never get here, so none of
// those surfaces learn from purely local rejections.
func (c *Client) conclude(e *request.Execution, permit *pool.Permit) {
	failed := e.Failed()
	if failed {
		c.failStreak.Add(1)
	} else {
		c.failStreak.Store(0)
	}
	if c.Breaker != nil {
		c.Breaker.Record(failed)
	}

	// On success e.Protocol is the wire protocol the response reports;
	// on failure it is the version hint the attempt was sent with.
	served := protocol.ParseVersion(e.Protocol)
	if permit != nil {
		if e.Err != nil {
			permit.Failed()
		} else {
			proto := ""
			if served != protocol.Auto {
				proto = served.String()
			}
			permit.Used(e.AttemptDuration, proto)
		}
	}
	if c.Negotiator != nil {
		c.Negotiator.RecordOutcome(e.Host, served, e.Err == nil, e.AttemptDuration)
	}
	if c.Stats != nil {
		proto := ""
		if e.Response != nil {
			proto = e.Response.Proto
		}
		c.Stats.RecordRequest(e.Host, proto, e.AttemptDuration, int64(len(e.Plan.Body)), int64(len(e.Body)), failed)
	}
}

func readBody(e *request.Execution, stack *middleware.Stack) {
	defer func() {
		_ = e.Response.Body.Close()
	}()
	stack.On(middleware.BeforeReadBody, e)
	var err error
	e.Body, err = io.ReadAll(e.Response.Body)
	if err != nil {
		e.Err = err
	}
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Get(url string) (*request.Execution, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Head(url string) (*request.Execution, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do.
//
// The body parameter may be nil for an empty body, or may be any of
// the types supported by request.NewPlan, request.BodyBytes, and
// ultrafast.Post, namely: string; []byte; io.Reader; and
// io.ReadCloser.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Post(url, contentType string, body any) (*request.Execution, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
// To set other headers, use request.NewPlan and Client.Do.
func (c *Client) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(c, url, data)
}

// Put issues a PUT to the specified URL, using the same policies
// followed by Do.
//
// The body parameter accepts the same types as Post.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Put(url, contentType string, body any) (*request.Execution, error) {
	return Put(c, url, contentType, body)
}

// Patch issues a PATCH to the specified URL, using the same policies
// followed by Do.
//
// The body parameter accepts the same types as Post.
//
// To make a request plan with custom headers, use request.NewPlan and
// Client.Do.
func (c *Client) Patch(url, contentType string, body any) (*request.Execution, error) {
	return Patch(c, url, contentType, body)
}

// Delete issues a DELETE to the specified URL, using the same policies
// followed by Do.
//
// To make a request plan with custom headers or a body, use
// request.NewPlan and Client.Do.
func (c *Client) Delete(url string) (*request.Execution, error) {
	return Delete(c, url)
}

// CloseIdleConnections releases resources held for future requests:
// it closes idle connections on the client's Transport and sweeps
// expired idle entries from the connection pool.
//
// If the Transport has no CloseIdleConnections method, its connections
// are left alone. The bundled transport.HTTPTransport forwards the
// call to each of its round-trippers.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.transport().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
	if c.Pool != nil {
		c.Pool.CloseIdle()
	}
}

func (c *Client) transport() transport.Transport {
	if c.Transport == nil {
		return transport.DefaultTransport
	}

	return c.Transport
}

func (c *Client) stack() *middleware.Stack {
	if c.Middleware == nil {
		return &emptyStack
	}

	return c.Middleware
}
