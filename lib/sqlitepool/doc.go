// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite database that backs nodestrap's
// attempt history.
//
// Open wraps zombiezen.com/go/sqlite/sqlitex.Pool. Every connection
// gets the same pragmas on first use:
//
//   - journal_mode=WAL so a history listing never blocks a run that is
//     recording its attempt.
//   - synchronous=NORMAL. A recorded attempt survives a process crash;
//     losing the last attempt to a power failure is acceptable.
//   - busy_timeout=5000 so concurrent nodestrap processes sharing one
//     history file wait for the write lock instead of failing.
//   - temp_store=MEMORY.
//
// Migrations are applied in order, tracked through PRAGMA user_version.
// Each pending step runs inside an immediate transaction, so two
// processes opening a fresh database at once apply each step exactly
// once.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:       historyPath,
//	    Migrations: []string{schemaV1},
//	    Logger:     logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
// Callers write SQL directly with sqlitex.Execute and manage their own
// transactions.
package sqlitepool
