// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessiontest provides an in-memory session.Session for tests
// of code that drives sessions.
package sessiontest

import (
	"context"
	"strings"
	"sync"

	"github.com/bureau-foundation/nodestrap/lib/session"
)

// Response is what the fake returns for one command.
type Response struct {
	Result session.CommandResult
	Err    error
}

// Session records submitted commands and answers them from a responder.
// The zero value answers every command with exit status 0.
type Session struct {
	// Respond produces the response for a command. Nil means success.
	Respond func(command string) Response

	mu        sync.Mutex
	submitted []string
	closed    bool
}

// Exit returns a responder that exits with status for commands
// containing substring and succeeds otherwise.
func Exit(substring string, status int, output string) func(string) Response {
	return func(command string) Response {
		if strings.Contains(command, substring) {
			return Response{Result: session.CommandResult{ExitStatus: status, Output: output}}
		}
		return Response{}
	}
}

func (s *Session) Submit(ctx context.Context, command string) (session.CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.CommandResult{}, session.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return session.CommandResult{}, &session.TransportError{Op: "submit", Err: err}
	}
	s.submitted = append(s.submitted, command)
	if s.Respond == nil {
		return session.CommandResult{}, nil
	}
	response := s.Respond(command)
	return response.Result, response.Err
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Submitted returns a copy of the commands submitted so far, in order.
func (s *Session) Submitted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.submitted...)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Opener returns an opener that hands out s, or fails with openErr when
// it is non-nil.
func Opener(s *Session, openErr error) session.Opener {
	return session.OpenerFunc(func(context.Context, session.Endpoint, session.Credentials) (session.Session, error) {
		if openErr != nil {
			return nil, openErr
		}
		return s, nil
	})
}
