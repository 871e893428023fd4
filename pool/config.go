// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"time"

	uferrors "github.com/techgopal/ultrafast-client/errors"
)

// A Config carries the connection pool settings shared by every
// per-host pool under one Multiplexer.
type Config struct {
	// MaxConnections caps the connections a single host may hold at
	// once. Acquire blocks once the cap is reached. Must be positive.
	MaxConnections int

	// MaxIdleConnections caps idle connections across all hosts
	// combined. Zero means no combined cap; per-host caps still
	// apply.
	MaxIdleConnections int

	// MaxIdlePerHost caps the idle connections parked for one host.
	// Zero keeps no idle connections at all.
	MaxIdlePerHost int

	// MaxIdleTime is how long a parked connection stays eligible for
	// reuse. Must be positive.
	MaxIdleTime time.Duration

	// AcquireTimeout bounds how long Acquire waits for a free slot on
	// a saturated host. Zero waits as long as the caller's context
	// allows.
	AcquireTimeout time.Duration
}

// DefaultConfig returns the default pool settings: 10 connections per
// host, up to 100 idle connections overall and 10 per host, a 90
// second idle lifetime, and a 30 second acquisition bound.
func DefaultConfig() Config {
	return Config{
		MaxConnections:     10,
		MaxIdleConnections: 100,
		MaxIdlePerHost:     10,
		MaxIdleTime:        90 * time.Second,
		AcquireTimeout:     30 * time.Second,
	}
}

func (c Config) validate() error {
	if c.MaxConnections <= 0 {
		return uferrors.Configf("max_connections must be positive, got %d", c.MaxConnections)
	}
	if c.MaxIdleConnections < 0 {
		return uferrors.Configf("max_idle_connections cannot be negative, got %d", c.MaxIdleConnections)
	}
	if c.MaxIdlePerHost < 0 {
		return uferrors.Configf("max_idle_per_host cannot be negative, got %d", c.MaxIdlePerHost)
	}
	if c.MaxIdleTime <= 0 {
		return uferrors.Configf("max_idle_time must be positive, got %v", c.MaxIdleTime)
	}
	if c.AcquireTimeout < 0 {
		return uferrors.Configf("acquire_timeout cannot be negative, got %v", c.AcquireTimeout)
	}
	return nil
}
