// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package localsession implements session.Session by running each
// command as a local process. It stands in for a remote transport when
// the bootstrap target is the current machine (nodestrap run --local)
// and in end-to-end tests, without any conditional logic in the
// execution driver.
//
// On Unix each command runs under "sh -c" in its own process group.
// A timed-out command has its whole group killed, so children it
// spawned do not outlive it; Close kills any group still alive, which
// covers work a command left running in the background. On Windows
// each command is written to a temporary .cmd file and run with
// cmd.exe, so batch escaping rules (%% for a literal %) apply exactly
// as they would in a script file.
package localsession
