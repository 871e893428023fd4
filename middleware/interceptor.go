// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

import (
	"github.com/techgopal/ultrafast-client/request"
)

// An Interceptor handles the occurrence of lifecycle events during a
// request plan execution. The stack delivers every Event to every
// registered interceptor, so an interceptor interested in only some
// events should switch on the event type.
type Interceptor interface {
	Middleware
	On(Event, *request.Execution)
}

// NewInterceptor adapts an ordinary function into a named interceptor
// middleware. It panics if f is nil.
func NewInterceptor(name string, f func(Event, *request.Execution)) Interceptor {
	if f == nil {
		panic("ultrafast/middleware: nil interceptor func")
	}
	return &funcInterceptor{name: name, f: f}
}

type funcInterceptor struct {
	name string
	f    func(Event, *request.Execution)
}

func (i *funcInterceptor) Name() string { return i.name }

func (i *funcInterceptor) On(evt Event, e *request.Execution) {
	i.f(evt, e)
}
