// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package history records bootstrap attempts in a local SQLite
// database so an operator can see what ran against which target and
// how it ended.
//
// Each attempt is one row. The queryable summary (target, template,
// script digest, start time, duration, outcome class, error text) is
// stored in plain columns. Per-unit results ride along as a single
// blob: deterministic CBOR (lib/codec) compressed with zstd by default
// or lz4 when configured. Unit output is stripped of terminal escape
// sequences before it is stored, since installers and progress bars
// emit them freely and they make the history view unreadable.
//
// Store is safe for concurrent use. Several nodestrap processes may
// share one database file; SQLite's write lock serializes them.
package history
