// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sshsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/bureau-foundation/nodestrap/lib/session"
)

// DefaultPort is used when the endpoint has no port.
const DefaultPort = 22

// Options configure an Opener.
type Options struct {
	// KnownHostsFiles lists known_hosts files used to verify the
	// server's host key. Empty means ~/.ssh/known_hosts.
	KnownHostsFiles []string

	// InsecureIgnoreHostKey disables host key verification.
	InsecureIgnoreHostKey bool

	// DialTimeout bounds TCP connect plus SSH handshake when the
	// context passed to Open has no earlier deadline. Zero means 30s.
	DialTimeout time.Duration

	// CommandTimeout bounds each Submit. Zero means no session-level
	// timeout (the caller's context still applies).
	CommandTimeout time.Duration

	// BatchFiles delivers each command to a Windows target as a
	// temporary batch file (session.BatchFileCommand). Set it for
	// batch-dialect scripts, whose quoting assumes batch-file parsing.
	BatchFiles bool

	// Dial replaces the TCP dialer. Nil uses net.Dialer.
	Dial func(ctx context.Context, network, address string) (net.Conn, error)

	Logger *slog.Logger
}

// Opener opens SSH sessions.
type Opener struct {
	options Options
}

// NewOpener returns an Opener with the given options.
func NewOpener(options Options) *Opener {
	if options.DialTimeout <= 0 {
		options.DialTimeout = 30 * time.Second
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return &Opener{options: options}
}

// Open dials the endpoint, verifies its host key, and authenticates.
func (o *Opener) Open(ctx context.Context, endpoint session.Endpoint, credentials session.Credentials) (session.Session, error) {
	if credentials.User == "" {
		return nil, &session.TransportError{Op: "authenticate", Err: errors.New("no user configured")}
	}

	authMethods, err := authMethods(credentials)
	if err != nil {
		return nil, &session.TransportError{Op: "authenticate", Err: err}
	}

	hostKeyCallback, err := o.hostKeyCallback()
	if err != nil {
		return nil, &session.TransportError{Op: "host key", Err: err}
	}

	address := endpoint.Address(DefaultPort)
	config := &ssh.ClientConfig{
		User:            credentials.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         o.options.DialTimeout,
	}

	dialContext, cancel := context.WithTimeout(ctx, o.options.DialTimeout)
	defer cancel()

	dial := o.options.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	conn, err := dial(dialContext, "tcp", address)
	if err != nil {
		return nil, &session.TransportError{Op: "dial " + address, Err: err}
	}

	// The SSH handshake has no context parameter; bound it with the
	// connection deadline and close the connection if ctx ends first.
	if deadline, ok := dialContext.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	handshakeDone := make(chan struct{})
	go func() {
		select {
		case <-dialContext.Done():
			conn.Close()
		case <-handshakeDone:
		}
	}()
	clientConn, channels, requests, err := ssh.NewClientConn(conn, address, config)
	close(handshakeDone)
	if err != nil {
		conn.Close()
		if ctxErr := dialContext.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return nil, &session.TransportError{Op: "handshake " + address, Err: err}
	}
	conn.SetDeadline(time.Time{})

	o.options.Logger.Debug("ssh session opened",
		"address", address,
		"user", credentials.User,
		"server_version", string(clientConn.ServerVersion()),
	)

	return &Session{
		client:         ssh.NewClient(clientConn, channels, requests),
		address:        address,
		commandTimeout: o.options.CommandTimeout,
		batchFiles:     o.options.BatchFiles,
		logger:         o.options.Logger,
	}, nil
}

func (o *Opener) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if o.options.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	files := o.options.KnownHostsFiles
	if len(files) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating default known_hosts: %w", err)
		}
		files = []string{filepath.Join(home, ".ssh", "known_hosts")}
	}
	callback, err := knownhosts.New(files...)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts: %w", err)
	}
	return callback, nil
}

func authMethods(credentials session.Credentials) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if len(credentials.PrivateKey) > 0 {
		var signer ssh.Signer
		var err error
		if len(credentials.PrivateKeyPassphrase) > 0 {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(credentials.PrivateKey, credentials.PrivateKeyPassphrase)
		} else {
			signer, err = ssh.ParsePrivateKey(credentials.PrivateKey)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if credentials.Password != "" {
		password := credentials.Password
		methods = append(methods,
			ssh.Password(password),
			// Many Windows and PAM-backed servers only offer
			// keyboard-interactive; answer every prompt with the password.
			ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}
	if len(methods) == 0 {
		return nil, errors.New("no password or private key configured")
	}
	return methods, nil
}

// Session is an open SSH connection.
type Session struct {
	client         *ssh.Client
	address        string
	commandTimeout time.Duration
	batchFiles     bool
	logger         *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Submit runs command in a new SSH channel.
func (s *Session) Submit(ctx context.Context, command string) (session.CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.CommandResult{}, session.ErrClosed
	}

	channel, err := s.client.NewSession()
	if err != nil {
		return session.CommandResult{}, &session.TransportError{Op: "open channel", Err: err}
	}
	defer channel.Close()

	commandContext := ctx
	if s.commandTimeout > 0 {
		var cancel context.CancelFunc
		commandContext, cancel = context.WithTimeout(ctx, s.commandTimeout)
		defer cancel()
	}

	type runResult struct {
		output []byte
		err    error
	}
	wire := command
	if s.batchFiles {
		wire = session.BatchFileCommand(command)
	}
	done := make(chan runResult, 1)
	start := time.Now()
	go func() {
		output, err := channel.CombinedOutput(wire)
		done <- runResult{output: output, err: err}
	}()

	var result runResult
	select {
	case result = <-done:
	case <-commandContext.Done():
		// Best effort: not every server implements signals, so close
		// the channel too, which unblocks CombinedOutput.
		_ = channel.Signal(ssh.SIGKILL)
		channel.Close()
		<-done
		if ctx.Err() != nil {
			return session.CommandResult{}, &session.TransportError{Op: "run", Err: ctx.Err()}
		}
		return session.CommandResult{}, &session.TransportTimeoutError{Command: command, Timeout: s.commandTimeout}
	}

	commandResult := session.CommandResult{
		Output:   string(result.output),
		Duration: time.Since(start),
	}

	var exitError *ssh.ExitError
	var exitMissing *ssh.ExitMissingError
	switch {
	case result.err == nil:
	case errors.As(result.err, &exitError):
		commandResult.ExitStatus = exitError.ExitStatus()
	case errors.As(result.err, &exitMissing):
		return commandResult, &session.TransportError{Op: "run", Err: result.err}
	case errors.Is(result.err, io.EOF):
		return commandResult, &session.TransportError{Op: "run", Err: fmt.Errorf("connection to %s lost: %w", s.address, result.err)}
	default:
		return commandResult, &session.TransportError{Op: "run", Err: result.err}
	}
	return commandResult, nil
}

// Close closes the SSH connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.client.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return &session.TransportError{Op: "close", Err: err}
	}
	return nil
}
