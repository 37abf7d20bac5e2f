// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localsession

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/bureau-foundation/nodestrap/lib/session"
)

// pipeGrace bounds how long Submit waits for output pipes held open by
// background children after the command itself exits.
const pipeGrace = 500 * time.Millisecond

// Options configure local sessions.
type Options struct {
	// CommandTimeout bounds each Submit. Zero means no session-level
	// timeout.
	CommandTimeout time.Duration

	// Dir is the working directory for commands. Empty means the
	// current directory.
	Dir string

	// Env is appended to the inherited environment.
	Env []string

	Logger *slog.Logger
}

// Session runs commands on the local machine.
type Session struct {
	options Options

	mu     sync.Mutex
	closed bool
	// groups holds the process group IDs of every command started, so
	// Close can reap background work they left behind.
	groups []int
}

// New returns a local session.
func New(options Options) *Session {
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return &Session{options: options}
}

// Opener opens local sessions. Endpoint and credentials are ignored.
type Opener struct {
	Options Options
}

// Open returns a new local session.
func (o Opener) Open(context.Context, session.Endpoint, session.Credentials) (session.Session, error) {
	return New(o.Options), nil
}

// Submit runs command through the platform shell.
func (s *Session) Submit(ctx context.Context, command string) (session.CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.CommandResult{}, session.ErrClosed
	}

	commandContext := ctx
	if s.options.CommandTimeout > 0 {
		var cancel context.CancelFunc
		commandContext, cancel = context.WithTimeout(ctx, s.options.CommandTimeout)
		defer cancel()
	}

	cmd, cleanup, err := shellCommand(commandContext, command)
	if err != nil {
		return session.CommandResult{}, &session.TransportError{Op: "prepare", Err: err}
	}
	defer cleanup()

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.Dir = s.options.Dir
	if len(s.options.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.options.Env...)
	}
	cmd.WaitDelay = pipeGrace

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return session.CommandResult{}, &session.TransportError{Op: "start", Err: err}
	}
	s.groups = append(s.groups, cmd.Process.Pid)

	err = cmd.Wait()
	result := session.CommandResult{
		Output:   output.String(),
		Duration: time.Since(start),
	}

	if commandContext.Err() != nil {
		if ctx.Err() != nil {
			return result, &session.TransportError{Op: "run", Err: ctx.Err()}
		}
		return result, &session.TransportTimeoutError{Command: command, Timeout: s.options.CommandTimeout}
	}

	var exitError *exec.ExitError
	switch {
	case err == nil:
	case errors.Is(err, exec.ErrWaitDelay):
		// The command exited but a background child kept its output
		// open; the exit status is still authoritative.
		result.ExitStatus = cmd.ProcessState.ExitCode()
		s.options.Logger.Debug("command left background output open", "pid", cmd.Process.Pid)
	case errors.As(err, &exitError):
		result.ExitStatus = exitError.ExitCode()
	default:
		return result, &session.TransportError{Op: "wait", Err: err}
	}
	return result, nil
}

// Close kills any process group a command left running.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, group := range s.groups {
		killGroup(group)
	}
	s.groups = nil
	return nil
}
