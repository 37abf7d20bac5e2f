// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error handler used
// before or after the structured logger exists. An error that carries
// its own exit status (anything with an ExitCode() int method anywhere
// in its chain) exits with that status; everything else exits 1.
package process
