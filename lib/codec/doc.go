// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration used for nodestrap's
// stored records.
//
// Attempt history keeps per-unit results as a CBOR blob next to the
// queryable columns. Encoding is Core Deterministic (RFC 8949 §4.2),
// so the same results always produce the same bytes and two attempts
// with identical outcomes can be compared byte for byte. Decoding
// ignores unknown fields, which lets older binaries read history
// written by newer ones.
//
// Diagnose renders a blob in RFC 8949 diagnostic notation for the
// history command's raw view.
package codec
