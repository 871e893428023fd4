// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package errors

import (
	"errors"
	"fmt"
	"time"
)

// A ConnectionError reports that a connection to the remote host could
// not be established, or was lost mid-flight. Connection errors are
// retryable: the condition is frequently caused by a service that is
// restarting, a load balancer draining a backend, or a stale pooled
// connection.
type ConnectionError struct {
	// Host is the host the connection was directed at. May be empty if
	// the failure occurred before the target host was resolved.
	Host string
	// Cause is the underlying error. Never nil.
	Cause error
}

func (e *ConnectionError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("connection error: %s: %v", e.Host, e.Cause)
	}
	return fmt.Sprintf("connection error: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// A TimeoutError reports that a request attempt exceeded its attempt
// timeout, or that the connection-level deadline expired. Timeout
// errors are retryable, typically with a longer attempt timeout.
type TimeoutError struct {
	Host string
	// Cause is the underlying error. Never nil.
	Cause error
}

func (e *TimeoutError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("timeout: %s: %v", e.Host, e.Cause)
	}
	return fmt.Sprintf("timeout: %v", e.Cause)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// Timeout reports true so that timeout classification survives
// wrapping. Matches the contract checked by net.Error consumers.
func (e *TimeoutError) Timeout() bool { return true }

// A ProtocolError reports a failure at the HTTP protocol layer: a
// malformed response, a broken HTTP/2 stream, or an attempted version
// upgrade the server could not serve.
type ProtocolError struct {
	Host string
	// Proto names the protocol in use when the failure occurred, in
	// "HTTP/2" form. May be empty if unknown.
	Proto string
	// Cause is the underlying error. Never nil.
	Cause error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Host != "" && e.Proto != "":
		return fmt.Sprintf("protocol error (%s): %s: %v", e.Proto, e.Host, e.Cause)
	case e.Proto != "":
		return fmt.Sprintf("protocol error (%s): %v", e.Proto, e.Cause)
	case e.Host != "":
		return fmt.Sprintf("protocol error: %s: %v", e.Host, e.Cause)
	default:
		return fmt.Sprintf("protocol error: %v", e.Cause)
	}
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// A RateLimitError reports that the rate limiter rejected an attempt
// before any network activity took place. Wait carries the limiter's
// estimate of how long until capacity is available, so callers can
// schedule their own retry.
type RateLimitError struct {
	// Host is the host whose per-host limit was exhausted, or empty
	// when the limiter operates in global scope.
	Host string
	// Wait is the estimated time until the next request would be
	// admitted. Zero means the limiter could not estimate.
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("rate limit exceeded for %s: retry in %v", e.Host, e.Wait)
	}
	return fmt.Sprintf("rate limit exceeded: retry in %v", e.Wait)
}

// A QueueFullError reports that the rate limiter's wait queue is at
// capacity and the attempt was rejected outright rather than queued.
type QueueFullError struct {
	Host string
	// Size is the configured queue capacity that was exhausted.
	Size int
}

func (e *QueueFullError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("rate limit queue full for %s: %d requests waiting", e.Host, e.Size)
	}
	return fmt.Sprintf("rate limit queue full: %d requests waiting", e.Size)
}

// A CircuitOpenError reports that the retry circuit breaker tripped:
// the observed error rate over the recent attempt window exceeded the
// breaker threshold, so further retries were abandoned. It is fatal
// for the execution that observes it.
type CircuitOpenError struct {
	// ErrorRate is the observed failure fraction, in [0, 1].
	ErrorRate float64
	// Window is the number of recent attempts the rate was computed
	// over.
	Window int
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open: error rate %.0f%% over last %d attempts", e.ErrorRate*100, e.Window)
}

// A ConfigError reports invalid configuration detected while
// constructing a component. Configuration is validated at setup time
// only; a ConfigError is never produced while executing a request.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Configf constructs a ConfigError from a format string.
func Configf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// An ExhaustedError annotates the last error observed by an execution
// whose retries ran out. Retries counts the retries performed (so the
// execution made Retries+1 attempts in total) and Cause is the error
// from the final attempt.
type ExhaustedError struct {
	Retries int
	// Cause is the error from the final attempt. Never nil.
	Cause error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("request failed after %d retries: %v", e.Retries, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

// IsRetryable reports whether err is an error class worth retrying:
// a connection error or a timeout. Rate limit rejections, protocol
// errors, circuit trips, and configuration errors are not retryable.
func IsRetryable(err error) bool {
	var ce *ConnectionError
	var te *TimeoutError
	return errors.As(err, &ce) || errors.As(err, &te)
}

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsRateLimit reports whether err is a rate limiter rejection, either
// a RateLimitError or a QueueFullError.
func IsRateLimit(err error) bool {
	var re *RateLimitError
	var qe *QueueFullError
	return errors.As(err, &re) || errors.As(err, &qe)
}

// IsCircuitOpen reports whether err is, or wraps, a CircuitOpenError.
func IsCircuitOpen(err error) bool {
	var ce *CircuitOpenError
	return errors.As(err, &ce)
}

// IsConfig reports whether err is, or wraps, a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
