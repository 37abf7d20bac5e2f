// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("session closed")

var errEmptyHost = errors.New("host is empty")

func errInvalidPort(port string) error {
	return fmt.Errorf("invalid port %q", port)
}

// TransportError is a connection-level failure: dialing,
// authenticating, opening a channel, or losing the connection while a
// command runs.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TransportTimeoutError reports a command that did not finish within
// the session's command timeout. The command has been signalled to
// stop, but the target may not have honored it.
type TransportTimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TransportTimeoutError) Error() string {
	return fmt.Sprintf("command did not complete within %s", e.Timeout)
}
