// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifactfs is the filesystem boundary the completion monitor
// and verifiers observe the bootstrap artifact through.
//
// [FS] answers one question: does a path exist, and how large is it.
// [Local] answers from os.Stat; [Remote] answers by running a small
// probe command through the bootstrap session. Code that consumes an
// FS never knows which it has. An absent path is a normal observation
// (Exists false, nil error); only failures to observe are errors.
//
// Optional capabilities are separate interfaces: [Remover] for
// clearing a stale artifact before an attempt and [ContentReader] for
// checksum verification. Both Local and Remote implement them; Remote
// transfers content as base64 text over the session, which suits an
// installer-sized artifact but not bulk copies.
package artifactfs
