// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session defines the remote-execution boundary of a bootstrap
// attempt: an authenticated, stateful channel to one target through
// which command units are submitted one at a time.
//
// The execution driver depends only on [Session] and [Opener].
// Implementations live in subpackages:
//
//   - sshsession: golang.org/x/crypto/ssh, one SSH channel per command
//   - localsession: runs commands as local processes, used when the
//     target is the machine nodestrap runs on and by end-to-end tests
//
// Submit is synchronous. It returns when the command exits or when the
// session's command timeout elapses ([*TransportTimeoutError]).
// Connection failures surface as [*TransportError] and are never
// retried inside a session; whether to retry a whole attempt is the
// caller's decision. Sessions serialize concurrent Submit calls, but
// the intended use is one owner submitting in order.
package session
