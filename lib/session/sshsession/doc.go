// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sshsession implements session.Session over SSH using
// golang.org/x/crypto/ssh.
//
// One SSH connection is held for the life of the session. Each Submit
// opens a fresh SSH channel, runs the command with the remote user's
// shell, and collects combined stdout and stderr. The command's exit
// status comes from the server's exit-status message; a command that
// ends without one (the connection dropped, or the remote side was
// killed by a signal the server did not report) is a
// session.TransportError rather than a guessed status.
//
// Host keys are verified against known_hosts files. Skipping
// verification requires Options.InsecureIgnoreHostKey, which the CLI
// only sets from an explicit flag.
package sshsession
