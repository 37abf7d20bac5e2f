// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package localsession

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/nodestrap/lib/session"
)

func TestSubmit(t *testing.T) {
	t.Parallel()

	local := New(Options{Dir: t.TempDir(), Env: []string{"NODESTRAP_TEST_VALUE=from-env"}})
	defer local.Close()

	tests := []struct {
		name       string
		command    string
		wantStatus int
		wantOutput string
	}{
		{"success", "echo hello", 0, "hello\n"},
		{"exit status", "echo failing >&2; exit 3", 3, "failing\n"},
		{"combined output", "echo out; echo err >&2", 0, "out\nerr\n"},
		{"environment", `printf %s "$NODESTRAP_TEST_VALUE"`, 0, "from-env"},
		{"working directory", "touch marker && ls", 0, "marker\n"},
	}
	for _, test := range tests {
		result, err := local.Submit(context.Background(), test.command)
		if err != nil {
			t.Fatalf("%s: Submit: %v", test.name, err)
		}
		if result.ExitStatus != test.wantStatus {
			t.Errorf("%s: exit status = %d, want %d", test.name, result.ExitStatus, test.wantStatus)
		}
		if result.Output != test.wantOutput {
			t.Errorf("%s: output = %q, want %q", test.name, result.Output, test.wantOutput)
		}
	}
}

func TestSubmitTimeout(t *testing.T) {
	t.Parallel()

	local := New(Options{CommandTimeout: 100 * time.Millisecond})
	defer local.Close()

	start := time.Now()
	_, err := local.Submit(context.Background(), "sleep 30")
	var timeoutError *session.TransportTimeoutError
	if !errors.As(err, &timeoutError) {
		t.Fatalf("Submit error = %v, want *session.TransportTimeoutError", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Submit took %s after the timeout", elapsed)
	}
}

func TestSubmitTimeoutKillsChildren(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	marker := filepath.Join(directory, "survived")
	local := New(Options{CommandTimeout: 100 * time.Millisecond})
	defer local.Close()

	// The child sleeps past the timeout and would then write the
	// marker; killing the process group must take it down too.
	_, err := local.Submit(context.Background(), "(sleep 1 && touch "+marker+") & wait")
	var timeoutError *session.TransportTimeoutError
	if !errors.As(err, &timeoutError) {
		t.Fatalf("Submit error = %v, want *session.TransportTimeoutError", err)
	}

	time.Sleep(1500 * time.Millisecond)
	if _, err := os.Stat(marker); err == nil {
		t.Error("background child outlived the timed-out command")
	}
}

func TestSubmitCallerCancel(t *testing.T) {
	t.Parallel()

	local := New(Options{})
	defer local.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := local.Submit(ctx, "sleep 30")
	var transportError *session.TransportError
	if !errors.As(err, &transportError) {
		t.Fatalf("Submit error = %v, want *session.TransportError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Submit error = %v, want wrapped context.Canceled", err)
	}
}

func TestBackgroundOutputDoesNotBlock(t *testing.T) {
	t.Parallel()

	local := New(Options{})
	defer local.Close()

	start := time.Now()
	result, err := local.Submit(context.Background(), "echo started; sleep 30 &")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.ExitStatus != 0 || !strings.HasPrefix(result.Output, "started") {
		t.Errorf("result = %+v", result)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Submit waited %s for a background child", elapsed)
	}
}

func TestCloseKillsBackgroundWork(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	marker := filepath.Join(directory, "late")
	local := New(Options{})

	if _, err := local.Submit(context.Background(), "(sleep 1 && touch "+marker+") >/dev/null 2>&1 &"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := local.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	time.Sleep(1500 * time.Millisecond)
	if _, err := os.Stat(marker); err == nil {
		t.Error("background work survived Close")
	}

	if _, err := local.Submit(context.Background(), "true"); !errors.Is(err, session.ErrClosed) {
		t.Errorf("Submit after Close error = %v, want session.ErrClosed", err)
	}
}

func TestOpener(t *testing.T) {
	t.Parallel()

	var opener session.Opener = Opener{}
	opened, err := opener.Open(context.Background(), session.Endpoint{Host: "ignored"}, session.Credentials{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer opened.Close()
	result, err := opened.Submit(context.Background(), "printf ok")
	if err != nil || result.Output != "ok" {
		t.Errorf("Submit = %+v, %v", result, err)
	}
}
