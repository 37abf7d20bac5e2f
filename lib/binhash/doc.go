// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides content hashing for downloaded artifacts and
// rendered scripts.
//
// Two algorithms are supported, both producing 32-byte digests:
// SHA256 (what installer vendors publish alongside their packages) and
// BLAKE3 (faster, used when the operator controls both ends).
//
// The API surface:
//
//   - [HashReader] and [HashFile] -- stream content through the chosen
//     algorithm with constant memory usage regardless of size
//   - [FormatDigest] -- converts a digest to its canonical lower-case
//     hex string, used in config files, history records, and log output
//   - [ParseDigest] -- parses a hex digest back to a [32]byte array,
//     validating length and encoding
//
// This package has no dependencies on other nodestrap packages.
package binhash
