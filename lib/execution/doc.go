// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package execution drives a rendered bootstrap script through a
// session, one unit at a time.
//
// Each section of a script becomes a [Unit]: a named, kind-tagged
// value that knows how to dispatch itself through a session.Session.
// [CommandUnit] submits its rendered command; [NoopUnit] succeeds
// without touching the session. Because a unit's content is opaque to
// the [Driver], callers substitute units freely ([ReplaceKinds],
// [KeepOnly]) and the driver's ordering and failure handling never
// change.
//
// [Driver.Run] submits units strictly in order and stops at the first
// unit whose command exits non-zero, returning [*ExecutionFailedError]
// with that unit's index, status, and output. Units after it are never
// submitted. Transport failures stop the run the same way, wrapped in
// [*UnitError]. There is no per-unit retry: a partially applied script
// is a visible failure, and retrying is a whole-attempt decision for
// the caller.
package execution
