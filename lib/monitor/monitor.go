// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor waits for an asynchronous side effect of a bootstrap
// attempt, such as an installer download that outlives the command
// that started it.
//
// [Monitor.AwaitCondition] evaluates a predicate immediately and then
// once per interval until it holds ([StatusSatisfied]) or the deadline
// passes ([StatusTimedOut]). A timeout is a terminal result for the
// caller to report, never a success. Predicate errors stop the wait
// and propagate; a predicate that can observe "not yet" (a file that
// does not exist yet) must return false, not an error. All timing goes
// through clock.Clock so tests drive it with clock.Fake.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/nodestrap/lib/artifactfs"
	"github.com/bureau-foundation/nodestrap/lib/clock"
)

// Status is the terminal state of a wait.
type Status string

const (
	StatusSatisfied Status = "satisfied"
	StatusTimedOut  Status = "timed_out"
)

// Predicate reports whether the awaited condition holds.
type Predicate func(ctx context.Context) (bool, error)

// Check describes one wait.
type Check struct {
	Predicate Predicate
	// Interval is the time between evaluations. Must be positive.
	Interval time.Duration
	// Deadline is the longest the wait may last, measured from the
	// call, including an evaluation still running when it passes.
	// Zero evaluates the predicate exactly once.
	Deadline time.Duration
}

// Monitor evaluates checks against a clock.
type Monitor struct {
	clock  clock.Clock
	logger *slog.Logger
}

// New returns a Monitor. Nil arguments select the real clock and a
// discarding logger.
func New(c clock.Clock, logger *slog.Logger) *Monitor {
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{clock: c, logger: logger}
}

// AwaitCondition blocks until check is satisfied, its deadline passes,
// or ctx is done.
//
// Returns (StatusSatisfied, nil) on the first true evaluation and
// (StatusTimedOut, nil) when the deadline passes first. The deadline
// also bounds an evaluation in progress: the predicate's context is
// cancelled and the wait ends without waiting for it to return. If ctx
// is done the result is StatusTimedOut with ctx's error, so callers
// that only look at the status still see a failure. A predicate error
// is returned as-is with an empty Status.
func (m *Monitor) AwaitCondition(ctx context.Context, check Check) (Status, error) {
	if check.Predicate == nil {
		return "", errors.New("monitor: check has no predicate")
	}
	if check.Interval <= 0 {
		return "", fmt.Errorf("monitor: interval must be positive, got %s", check.Interval)
	}

	start := m.clock.Now()
	deadline := start.Add(check.Deadline)

	// expired stays nil for a zero deadline: one evaluation, bounded by
	// ctx alone.
	var expired <-chan time.Time
	if check.Deadline > 0 {
		ticker := m.clock.NewTicker(check.Deadline)
		defer ticker.Stop()
		expired = ticker.C
	}

	for attempt := 1; ; attempt++ {
		if attempt > 1 && !m.clock.Now().Before(deadline) {
			m.logger.Debug("condition timed out", "attempts", attempt-1, "deadline", check.Deadline)
			return StatusTimedOut, nil
		}

		satisfied, status, err := m.evaluate(ctx, check.Predicate, expired)
		if status != "" || err != nil {
			if status == StatusTimedOut && err == nil {
				m.logger.Debug("deadline passed during evaluation", "attempts", attempt, "deadline", check.Deadline)
			}
			return status, err
		}
		if satisfied {
			m.logger.Debug("condition satisfied", "attempts", attempt, "elapsed", clock.Since(m.clock, start))
			return StatusSatisfied, nil
		}
		if expired == nil {
			return StatusTimedOut, nil
		}

		select {
		case <-ctx.Done():
			return StatusTimedOut, ctx.Err()
		case <-expired:
			m.logger.Debug("condition timed out", "attempts", attempt, "deadline", check.Deadline)
			return StatusTimedOut, nil
		case <-m.clock.After(check.Interval):
		}
	}
}

// evaluate runs predicate once. A non-empty status means the wait is
// over before the predicate answered.
func (m *Monitor) evaluate(ctx context.Context, predicate Predicate, expired <-chan time.Time) (bool, Status, error) {
	evaluation, cancel := context.WithCancel(ctx)
	defer cancel()

	type answer struct {
		satisfied bool
		err       error
	}
	answered := make(chan answer, 1)
	go func() {
		satisfied, err := predicate(evaluation)
		answered <- answer{satisfied, err}
	}()

	select {
	case result := <-answered:
		if result.err != nil {
			if ctx.Err() != nil {
				return false, StatusTimedOut, ctx.Err()
			}
			return false, "", result.err
		}
		return result.satisfied, "", nil
	case <-expired:
		return false, StatusTimedOut, nil
	case <-ctx.Done():
		return false, StatusTimedOut, ctx.Err()
	}
}

// ArtifactReady is satisfied once path exists with a size greater than
// zero. Absence and zero size both mean "not yet"; errors from the
// filesystem propagate.
func ArtifactReady(filesystem artifactfs.FS, path string) Predicate {
	return func(ctx context.Context) (bool, error) {
		info, err := filesystem.Stat(ctx, path)
		if err != nil {
			return false, err
		}
		return info.Exists && info.Size > 0, nil
	}
}
