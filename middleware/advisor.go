// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

import (
	"github.com/techgopal/ultrafast-client/retry"
)

// A RetryAdvisor supplies the retry policy the client uses for a plan
// execution. When the stack holds at least one advisor, the policy of
// the first registered advisor overrides the client's own retry
// policy.
type RetryAdvisor interface {
	Middleware
	Policy() retry.Policy
}

// NewRetryAdvisor returns an advisor middleware carrying a fixed
// policy. It panics if policy is nil.
func NewRetryAdvisor(name string, policy retry.Policy) RetryAdvisor {
	if policy == nil {
		panic("ultrafast/middleware: nil retry policy")
	}
	return &retryAdvisor{name: name, policy: policy}
}

type retryAdvisor struct {
	name   string
	policy retry.Policy
}

func (a *retryAdvisor) Name() string { return a.name }

func (a *retryAdvisor) Policy() retry.Policy { return a.policy }
