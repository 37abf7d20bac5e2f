// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build version information for nodestrap.
//
// Values are injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/nodestrap/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When no ldflags were given, Info falls back to the VCS stamp the Go
// toolchain embeds in the binary.
package version
