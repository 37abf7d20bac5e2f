// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/bureau-foundation/nodestrap/lib/clock"
	"github.com/bureau-foundation/nodestrap/lib/render"
	"github.com/bureau-foundation/nodestrap/lib/session"
	"github.com/bureau-foundation/nodestrap/lib/session/sessiontest"
)

func sampleUnits() []Unit {
	return []Unit{
		NewCommand("validation_key", "credentials", "write validation_key"),
		NewCommand("config_content", "config", "write config"),
		NewCommand("download", "download", "fetch installer"),
		NewCommand("install", "install", "install agent"),
		NewCommand("start", "start", "start agent"),
	}
}

func newTestDriver() *Driver {
	return NewDriver(clock.Fake(time.Unix(1_700_000_000, 0)), nil)
}

func TestRunOrder(t *testing.T) {
	t.Parallel()

	fake := &sessiontest.Session{}
	outcome, err := newTestDriver().Run(context.Background(), sampleUnits(), fake)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"write validation_key", "write config", "fetch installer", "install agent", "start agent"}
	if got := fake.Submitted(); !reflect.DeepEqual(got, want) {
		t.Errorf("submitted = %v, want %v", got, want)
	}
	if !outcome.Completed() {
		t.Error("outcome not completed")
	}
	for i, result := range outcome.Results {
		if result.Index != i || result.Status != StatusOK {
			t.Errorf("result %d = %+v", i, result)
		}
	}
	if fake.Closed() {
		t.Error("driver closed a session it does not own")
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	fake := &sessiontest.Session{Respond: sessiontest.Exit("fetch", 3, "curl: (6) could not resolve host")}
	outcome, err := newTestDriver().Run(context.Background(), sampleUnits(), fake)

	var failed *ExecutionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("Run error = %v, want *ExecutionFailedError", err)
	}
	if failed.Index != 2 || failed.Name != "download" || failed.Kind != "download" || failed.ExitStatus != 3 {
		t.Errorf("ExecutionFailedError = %+v", failed)
	}
	if failed.Output != "curl: (6) could not resolve host" {
		t.Errorf("Output = %q", failed.Output)
	}

	if got := fake.Submitted(); len(got) != 3 {
		t.Errorf("submitted %d units (%v), want 3", len(got), got)
	}

	wantStatus := []Status{StatusOK, StatusOK, StatusFailed, StatusNotRun, StatusNotRun}
	for i, want := range wantStatus {
		if got := outcome.Results[i].Status; got != want {
			t.Errorf("result %d status = %s, want %s", i, got, want)
		}
	}
	if outcome.Completed() {
		t.Error("failed outcome reports completed")
	}
}

func TestRunTransportError(t *testing.T) {
	t.Parallel()

	transportFailure := &session.TransportError{Op: "run", Err: errors.New("connection reset")}
	fake := &sessiontest.Session{Respond: func(command string) sessiontest.Response {
		if command == "write config" {
			return sessiontest.Response{Err: transportFailure}
		}
		return sessiontest.Response{}
	}}

	outcome, err := newTestDriver().Run(context.Background(), sampleUnits(), fake)
	var unitError *UnitError
	if !errors.As(err, &unitError) {
		t.Fatalf("Run error = %v, want *UnitError", err)
	}
	if unitError.Index != 1 || unitError.Name != "config_content" {
		t.Errorf("UnitError = %+v", unitError)
	}
	var transportError *session.TransportError
	if !errors.As(err, &transportError) {
		t.Errorf("UnitError does not unwrap to *session.TransportError")
	}
	var failed *ExecutionFailedError
	if errors.As(err, &failed) {
		t.Error("transport failure reported as execution failure")
	}
	if outcome.Results[1].Status != StatusError || outcome.Results[1].Error == "" {
		t.Errorf("result 1 = %+v", outcome.Results[1])
	}
}

func TestRunTimeoutUnwraps(t *testing.T) {
	t.Parallel()

	fake := &sessiontest.Session{Respond: func(string) sessiontest.Response {
		return sessiontest.Response{Err: &session.TransportTimeoutError{Timeout: time.Minute}}
	}}
	_, err := newTestDriver().Run(context.Background(), sampleUnits(), fake)
	var timeoutError *session.TransportTimeoutError
	if !errors.As(err, &timeoutError) {
		t.Fatalf("Run error = %v, want wrapped *session.TransportTimeoutError", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := &sessiontest.Session{}
	_, err := newTestDriver().Run(ctx, sampleUnits(), fake)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(fake.Submitted()) != 0 {
		t.Errorf("submitted %v with a cancelled context", fake.Submitted())
	}
}

func TestKeepOnly(t *testing.T) {
	t.Parallel()

	units := KeepOnly(sampleUnits(), "download")
	if len(units) != 5 {
		t.Fatalf("len = %d, want 5", len(units))
	}
	for _, unit := range units {
		_, noop := unit.(NoopUnit)
		if want := unit.Kind() != "download"; noop != want {
			t.Errorf("unit %s noop = %v, want %v", unit.Name(), noop, want)
		}
	}

	fake := &sessiontest.Session{}
	outcome, err := newTestDriver().Run(context.Background(), units, fake)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := fake.Submitted(); !reflect.DeepEqual(got, []string{"fetch installer"}) {
		t.Errorf("submitted = %v, want only the download", got)
	}
	if outcome.Results[0].Status != StatusSkipped || outcome.Results[2].Status != StatusOK {
		t.Errorf("results = %+v", outcome.Results)
	}
	if !outcome.Completed() {
		t.Error("skipped units should not prevent completion")
	}
}

func TestReplaceKinds(t *testing.T) {
	t.Parallel()

	original := sampleUnits()
	units := ReplaceKinds(original, []string{"download"}, func(unit Unit) Unit {
		return NewCommand(unit.Name(), unit.Kind(), "exit 3")
	})

	// The input is not modified.
	if original[2].(*CommandUnit).Command() != "fetch installer" {
		t.Error("ReplaceKinds modified its input")
	}
	if got := units[2].(*CommandUnit).Command(); got != "exit 3" {
		t.Errorf("replaced command = %q", got)
	}
	if units[2].Name() != "download" {
		t.Errorf("replaced unit name = %q", units[2].Name())
	}
	if !reflect.DeepEqual(Kinds(units), Kinds(original)) {
		t.Errorf("kinds changed: %v vs %v", Kinds(units), Kinds(original))
	}
}

func TestFromScript(t *testing.T) {
	t.Parallel()

	script := &render.Script{Units: []render.Unit{
		{Index: 0, Name: "a", Kind: "k1", Command: "one"},
		{Index: 1, Name: "b", Kind: "k2", Command: "two"},
	}}
	units := FromScript(script)
	if len(units) != 2 {
		t.Fatalf("len = %d", len(units))
	}
	command, ok := units[1].(*CommandUnit)
	if !ok || command.Name() != "b" || command.Kind() != "k2" || command.Command() != "two" {
		t.Errorf("unit 1 = %#v", units[1])
	}
}
