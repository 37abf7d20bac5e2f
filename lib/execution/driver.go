// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/nodestrap/lib/clock"
	"github.com/bureau-foundation/nodestrap/lib/session"
)

// Status classifies one unit's result.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
	// StatusNotRun marks units after the one that stopped the run.
	StatusNotRun Status = "not_run"
)

// UnitResult records what happened to one unit.
type UnitResult struct {
	Index      int           `cbor:"index"`
	Name       string        `cbor:"name"`
	Kind       string        `cbor:"kind"`
	Status     Status        `cbor:"status"`
	ExitStatus int           `cbor:"exit_status"`
	Output     string        `cbor:"output,omitempty"`
	Duration   time.Duration `cbor:"duration"`
	Error      string        `cbor:"error,omitempty"`
}

// Outcome is the record of one Run. Results has one entry per unit
// passed to Run, including units that were never reached.
type Outcome struct {
	Results  []UnitResult
	Duration time.Duration
}

// Completed reports whether every unit ran and succeeded.
func (o *Outcome) Completed() bool {
	for _, result := range o.Results {
		if result.Status != StatusOK && result.Status != StatusSkipped {
			return false
		}
	}
	return true
}

// Driver runs units through a session.
type Driver struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// NewDriver returns a Driver. Nil arguments select the real clock and
// a discarding logger.
func NewDriver(c clock.Clock, logger *slog.Logger) *Driver {
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{Clock: c, Logger: logger}
}

// Run dispatches units in order through s and stops at the first
// failure. The returned Outcome is never nil, so callers can record
// partial progress even when err is non-nil. The session is not
// closed; its owner does that.
func (d *Driver) Run(ctx context.Context, units []Unit, s session.Session) (*Outcome, error) {
	runStart := d.Clock.Now()
	outcome := &Outcome{Results: make([]UnitResult, len(units))}
	for index, unit := range units {
		outcome.Results[index] = UnitResult{
			Index:  index,
			Name:   unit.Name(),
			Kind:   unit.Kind(),
			Status: StatusNotRun,
		}
	}
	defer func() { outcome.Duration = clock.Since(d.Clock, runStart) }()

	total := len(units)
	for index, unit := range units {
		record := &outcome.Results[index]

		if _, noop := unit.(NoopUnit); noop {
			record.Status = StatusSkipped
			d.Logger.Debug("unit skipped", "unit", unit.Name(), "kind", unit.Kind(), "position", index+1, "total", total)
			continue
		}

		if err := ctx.Err(); err != nil {
			record.Status = StatusError
			record.Error = err.Error()
			return outcome, &UnitError{Index: index, Name: unit.Name(), Err: err}
		}

		d.Logger.Info("dispatching unit", "unit", unit.Name(), "kind", unit.Kind(), "position", index+1, "total", total)
		unitStart := d.Clock.Now()
		result, err := unit.Dispatch(ctx, s)
		record.Duration = clock.Since(d.Clock, unitStart)
		record.ExitStatus = result.ExitStatus
		record.Output = result.Output

		if err != nil {
			record.Status = StatusError
			record.Error = err.Error()
			d.Logger.Error("unit transport failure", "unit", unit.Name(), "position", index+1, "error", err)
			return outcome, &UnitError{Index: index, Name: unit.Name(), Err: err}
		}

		if result.ExitStatus != 0 {
			record.Status = StatusFailed
			d.Logger.Error("unit failed",
				"unit", unit.Name(),
				"kind", unit.Kind(),
				"position", index+1,
				"exit_status", result.ExitStatus,
				"duration", record.Duration,
			)
			return outcome, &ExecutionFailedError{
				Index:      index,
				Name:       unit.Name(),
				Kind:       unit.Kind(),
				ExitStatus: result.ExitStatus,
				Output:     result.Output,
			}
		}

		record.Status = StatusOK
		d.Logger.Info("unit completed", "unit", unit.Name(), "position", index+1, "total", total, "duration", record.Duration)
	}
	return outcome, nil
}
