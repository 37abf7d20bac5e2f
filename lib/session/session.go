// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Session is one authenticated connection to one target.
type Session interface {
	// Submit runs command on the target and blocks until it exits.
	// A non-zero exit status is a successful Submit: the status is in
	// the result and classifying it is the caller's job. The error is
	// non-nil only when the transport failed or timed out.
	Submit(ctx context.Context, command string) (CommandResult, error)

	// Close releases the connection. Submit after Close returns
	// ErrClosed. Close is idempotent.
	Close() error
}

// Opener creates sessions.
type Opener interface {
	Open(ctx context.Context, endpoint Endpoint, credentials Credentials) (Session, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, endpoint Endpoint, credentials Credentials) (Session, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, endpoint Endpoint, credentials Credentials) (Session, error) {
	return f(ctx, endpoint, credentials)
}

// CommandResult is the outcome of one submitted command.
type CommandResult struct {
	ExitStatus int
	// Output is stdout and stderr interleaved as the target produced
	// them.
	Output   string
	Duration time.Duration
}

// Endpoint addresses one target.
type Endpoint struct {
	Host string
	// Port is the transport port. Zero selects the transport default.
	Port int
}

// Address returns host:port, using defaultPort when Port is zero.
func (e Endpoint) Address(defaultPort int) string {
	port := e.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

func (e Endpoint) String() string {
	if e.Port == 0 {
		return e.Host
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint reads "host" or "host:port". IPv6 literals with a port
// must be bracketed.
func ParseEndpoint(value string) (Endpoint, error) {
	host, portText, err := net.SplitHostPort(value)
	if err != nil {
		// No port.
		if value == "" {
			return Endpoint{}, &TransportError{Op: "parse endpoint", Err: errEmptyHost}
		}
		return Endpoint{Host: value}, nil
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, &TransportError{Op: "parse endpoint", Err: errInvalidPort(portText)}
	}
	if host == "" {
		return Endpoint{}, &TransportError{Op: "parse endpoint", Err: errEmptyHost}
	}
	return Endpoint{Host: host, Port: port}, nil
}

// Credentials authenticate a session. Which fields are used depends on
// the transport; the local transport ignores them.
type Credentials struct {
	User     string
	Password string
	// PrivateKey is a PEM-encoded private key. When set it is tried
	// before Password.
	PrivateKey           []byte
	PrivateKeyPassphrase []byte
}
