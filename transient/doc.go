// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors from HTTP request execution as
// transient or non-transient. The engine uses the classification to
// map low-level network failures into its error taxonomy, and retry
// deciders use it to recognize attempts worth repeating.
//
// Package transient is extremely lightweight, as it depends only on
// the standard library packages "errors", "net" and "syscall", so it
// doesn't bring any significant dependencies when imported as a
// standalone package.
package transient
