// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package errors defines the error taxonomy shared by every component
// of the ultrafast-client engine. Each terminal error handed back by
// the client is exactly one of the types in this package, so callers
// can branch on failure class with errors.As or with the predicate
// helpers (IsRetryable, IsTimeout, IsRateLimit, and so on) instead of
// string matching.
//
// Because the package is named errors, import it under an alias:
//
//	import uferrors "github.com/techgopal/ultrafast-client/errors"
//
// All types wrap their underlying cause where one exists, so the full
// chain remains visible to errors.Is and errors.As.
package errors
