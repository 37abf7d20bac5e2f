// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/nodestrap/lib/clock"
	"github.com/bureau-foundation/nodestrap/lib/codec"
	"github.com/bureau-foundation/nodestrap/lib/execution"
	"github.com/bureau-foundation/nodestrap/lib/sqlitepool"
)

// ErrNotFound is returned by Get for an unknown attempt id.
var ErrNotFound = errors.New("history: attempt not found")

// Outcome classifies how an attempt ended.
type Outcome string

const (
	OutcomeSucceeded            Outcome = "succeeded"
	OutcomeMissingField         Outcome = "missing_field"
	OutcomeUndefinedPlaceholder Outcome = "undefined_placeholder"
	OutcomeTransport            Outcome = "transport"
	OutcomeExecutionFailed      Outcome = "execution_failed"
	OutcomeCompletionTimeout    Outcome = "completion_timeout"
	OutcomeVerificationFailed   Outcome = "verification_failed"
	OutcomeError                Outcome = "error"
)

// Attempt is one recorded bootstrap attempt. Units is populated by Get
// and by the caller of Record; List leaves it nil and fills UnitCount.
type Attempt struct {
	ID           int64
	Target       string
	Template     string
	ScriptDigest string
	StartedAt    time.Time
	Duration     time.Duration
	Outcome      Outcome
	Error        string
	UnitCount    int
	Units        []execution.UnitResult
}

// Config holds the parameters for Open.
type Config struct {
	Path string

	// Compression is applied to unit blobs on write. Empty selects zstd.
	Compression Compression

	// RetainPerTarget bounds the attempts kept for each target. Older
	// rows are removed in the same transaction that records a new one.
	// Zero keeps everything.
	RetainPerTarget int

	Clock  clock.Clock
	Logger *slog.Logger
}

// Store is the attempt history database.
type Store struct {
	pool        *sqlitepool.Pool
	compression Compression
	retain      int
	clock       clock.Clock
	logger      *slog.Logger
}

// schemaMigrations are applied in order by sqlitepool. Append only.
var schemaMigrations = []string{`
CREATE TABLE attempts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	target        TEXT    NOT NULL,
	template      TEXT    NOT NULL,
	script_digest TEXT    NOT NULL,
	started_at    INTEGER NOT NULL,
	duration_ns   INTEGER NOT NULL,
	outcome       TEXT    NOT NULL,
	error         TEXT    NOT NULL,
	unit_count    INTEGER NOT NULL,
	units_codec   TEXT    NOT NULL,
	units_size    INTEGER NOT NULL,
	units         BLOB
);
CREATE INDEX attempts_by_target ON attempts (target, id);
`}

// Open opens or creates the history database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	compression, err := ParseCompression(string(cfg.Compression))
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if cfg.RetainPerTarget < 0 {
		return nil, fmt.Errorf("history: RetainPerTarget must not be negative, got %d", cfg.RetainPerTarget)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := cfg.Clock
	if c == nil {
		c = clock.Real()
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:       cfg.Path,
		Migrations: schemaMigrations,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	return &Store{
		pool:        pool,
		compression: compression,
		retain:      cfg.RetainPerTarget,
		clock:       c,
		logger:      logger,
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Record stores attempt and returns its id. A zero StartedAt is
// replaced with the store clock's current time. Unit output is
// stripped of terminal escape sequences; the caller's slice is not
// modified.
func (s *Store) Record(ctx context.Context, attempt Attempt) (id int64, err error) {
	if attempt.Target == "" {
		return 0, fmt.Errorf("history: attempt target is required")
	}
	if attempt.Outcome == "" {
		return 0, fmt.Errorf("history: attempt outcome is required")
	}
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = s.clock.Now()
	}

	units := make([]execution.UnitResult, len(attempt.Units))
	for i, unit := range attempt.Units {
		unit.Output = ansi.Strip(unit.Output)
		units[i] = unit
	}
	encoded, err := codec.Marshal(units)
	if err != nil {
		return 0, fmt.Errorf("history: encoding unit results: %w", err)
	}
	blob, codecUsed, err := compress(encoded, s.compression)
	if err != nil {
		return 0, fmt.Errorf("history: compressing unit results: %w", err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("history: record: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("history: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `
		INSERT INTO attempts (
			target, template, script_digest, started_at, duration_ns,
			outcome, error, unit_count, units_codec, units_size, units
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				attempt.Target,
				attempt.Template,
				attempt.ScriptDigest,
				attempt.StartedAt.UnixNano(),
				int64(attempt.Duration),
				string(attempt.Outcome),
				attempt.Error,
				len(units),
				string(codecUsed),
				len(encoded),
				blob,
			},
		})
	if err != nil {
		return 0, fmt.Errorf("history: insert attempt: %w", err)
	}
	id = conn.LastInsertRowID()

	if s.retain > 0 {
		err = sqlitex.Execute(conn, `
			DELETE FROM attempts
			WHERE target = ?
			  AND id NOT IN (
				SELECT id FROM attempts WHERE target = ? ORDER BY id DESC LIMIT ?
			  )`,
			&sqlitex.ExecOptions{Args: []any{attempt.Target, attempt.Target, s.retain}})
		if err != nil {
			return 0, fmt.Errorf("history: applying retention for %s: %w", attempt.Target, err)
		}
		if removed := conn.Changes(); removed > 0 {
			s.logger.Debug("history retention removed attempts",
				"target", attempt.Target,
				"removed", removed,
			)
		}
	}

	return id, nil
}

// Filter narrows List.
type Filter struct {
	// Target selects one target. Empty lists every target.
	Target string
	// Limit caps the number of attempts returned. Zero means 50.
	Limit int
}

const defaultListLimit = 50

// List returns attempt summaries, newest first. Units are not decoded.
func (s *Store) List(ctx context.Context, filter Filter) ([]Attempt, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var query strings.Builder
	query.WriteString(`SELECT id, target, template, script_digest, started_at,
		duration_ns, outcome, error, unit_count FROM attempts`)
	var args []any
	if filter.Target != "" {
		query.WriteString(" WHERE target = ?")
		args = append(args, filter.Target)
	}
	query.WriteString(" ORDER BY id DESC LIMIT ?")
	args = append(args, limit)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer s.pool.Put(conn)

	var attempts []Attempt
	err = sqlitex.Execute(conn, query.String(), &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			attempts = append(attempts, scanSummary(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return attempts, nil
}

// Get returns one attempt with its unit results decoded.
func (s *Store) Get(ctx context.Context, id int64) (*Attempt, error) {
	blob, attempt, err := s.getRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	var units []execution.UnitResult
	if err := codec.Unmarshal(blob, &units); err != nil {
		return nil, fmt.Errorf("history: decoding units of attempt %d: %w", id, err)
	}
	attempt.Units = units
	return attempt, nil
}

// RawUnits returns the decompressed CBOR encoding of an attempt's unit
// results, for diagnostic display.
func (s *Store) RawUnits(ctx context.Context, id int64) ([]byte, error) {
	blob, _, err := s.getRaw(ctx, id)
	return blob, err
}

func (s *Store) getRaw(ctx context.Context, id int64) ([]byte, *Attempt, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("history: get: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		attempt   *Attempt
		stored    []byte
		codecName Compression
		size      int
	)
	err = sqlitex.Execute(conn, `
		SELECT id, target, template, script_digest, started_at,
			duration_ns, outcome, error, unit_count,
			units_codec, units_size, units
		FROM attempts WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				summary := scanSummary(stmt)
				attempt = &summary
				codecName = Compression(stmt.ColumnText(9))
				size = stmt.ColumnInt(10)
				if !stmt.ColumnIsNull(11) {
					stored = make([]byte, stmt.ColumnLen(11))
					stmt.ColumnBytes(11, stored)
				}
				return nil
			},
		})
	if err != nil {
		return nil, nil, fmt.Errorf("history: get attempt %d: %w", id, err)
	}
	if attempt == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	blob, err := decompress(stored, codecName, size)
	if err != nil {
		return nil, nil, fmt.Errorf("history: attempt %d: %w", id, err)
	}
	return blob, attempt, nil
}

// scanSummary reads the first nine columns shared by List and Get.
func scanSummary(stmt *sqlite.Stmt) Attempt {
	return Attempt{
		ID:           stmt.ColumnInt64(0),
		Target:       stmt.ColumnText(1),
		Template:     stmt.ColumnText(2),
		ScriptDigest: stmt.ColumnText(3),
		StartedAt:    time.Unix(0, stmt.ColumnInt64(4)).UTC(),
		Duration:     time.Duration(stmt.ColumnInt64(5)),
		Outcome:      Outcome(stmt.ColumnText(6)),
		Error:        stmt.ColumnText(7),
		UnitCount:    stmt.ColumnInt(8),
	}
}
