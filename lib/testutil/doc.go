// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] bounds a wait on a channel so a broken test fails
// instead of hanging. Tests that measure time use lib/clock's fake.
//
// [RequireTool] resolves an external program the test drives (sh,
// curl) and skips the test when the machine does not have it.
// [WriteFile] writes a fixture into a test's temporary directory.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
