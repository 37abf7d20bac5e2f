// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/nodestrap/lib/history"
	"github.com/bureau-foundation/nodestrap/lib/process"
	"github.com/bureau-foundation/nodestrap/lib/testutil"
)

// These tests drive "nodestrap run --local" through the command tree:
// the built-in POSIX template runs under sh and downloads the installer
// from an httptest server with curl.

var installer = []byte(strings.Repeat("installer\n", 512))

type runFixture struct {
	directory string
	database  string
	serverURL string
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()
	testutil.RequireTool(t, "sh")
	testutil.RequireTool(t, "curl")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chef-client-latest.msi" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(installer)
	}))
	t.Cleanup(server.Close)

	return &runFixture{
		directory: t.TempDir(),
		database:  filepath.Join(t.TempDir(), "history.db"),
		serverURL: server.URL,
	}
}

// config writes a local-run config. bootstrapDirectory may be empty to
// let run create a temporary one; extra is appended under completion.
func (f *runFixture) config(t *testing.T, bootstrapDirectory, installCommand, completion string) string {
	t.Helper()
	directoryLines := ""
	if bootstrapDirectory != "" {
		directoryLines = fmt.Sprintf("  bootstrap_directory: %s\n  local_download_path: %s\n",
			bootstrapDirectory, filepath.Join(bootstrapDirectory, "cache", "chef-client-latest.msi"))
	}
	content := fmt.Sprintf(`bootstrap:
  validation_key: validation-key-material
  encrypted_data_bag_secret: data-bag-secret
  config_content: chef_server_url "https://chef.example.com"
  run_list: ["recipe[base]"]
  install_command: %s
  start_command: echo started
  installer_url: %s/chef-client-latest.msi
%scompletion:
  interval: 50ms
  deadline: 2s
%shistory:
  path: %s
  compression: lz4
`, installCommand, f.serverURL, directoryLines, completion, f.database)
	return testutil.WriteFile(t, t.TempDir(), "local.yaml", content)
}

func (f *runFixture) attempts(t *testing.T) []history.Attempt {
	t.Helper()
	store, err := history.Open(history.Config{Path: f.database})
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()
	attempts, err := store.List(context.Background(), history.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return attempts
}

func TestRunLocalSucceeds(t *testing.T) {
	t.Parallel()
	fixture := newRunFixture(t)
	sum := sha256.Sum256(installer)
	configPath := fixture.config(t, fixture.directory, "echo installed",
		"  checksum: "+hex.EncodeToString(sum[:])+"\n")

	output, err := execute(t, "run", "--local", "--config", configPath)
	if err != nil {
		t.Fatalf("run --local: %v\n%s", err, output)
	}
	for _, want := range []string{"localhost", "posix-sh", "download", "satisfied", "verified", "succeeded"} {
		if !strings.Contains(output, want) {
			t.Errorf("summary missing %q:\n%s", want, output)
		}
	}

	downloaded, err := os.ReadFile(filepath.Join(fixture.directory, "cache", "chef-client-latest.msi"))
	if err != nil {
		t.Fatalf("installer not downloaded: %v", err)
	}
	if len(downloaded) != len(installer) {
		t.Errorf("downloaded %d bytes, want %d", len(downloaded), len(installer))
	}
	key, err := os.ReadFile(filepath.Join(fixture.directory, "validation.pem"))
	if err != nil || strings.TrimSpace(string(key)) != "validation-key-material" {
		t.Errorf("validation.pem = %q, %v", key, err)
	}

	attempts := fixture.attempts(t)
	if len(attempts) != 1 || attempts[0].Outcome != history.OutcomeSucceeded || attempts[0].Target != "localhost" {
		t.Errorf("history = %+v", attempts)
	}
}

func TestRunLocalTemporaryDirectory(t *testing.T) {
	// Not parallel: the temporary bootstrap directory is created under
	// $TMPDIR, which the test points at a directory of its own.
	temporary := t.TempDir()
	t.Setenv("TMPDIR", temporary)

	fixture := newRunFixture(t)
	marker := filepath.Join(fixture.directory, "seen")
	// The install section lists the bootstrap material it can see, so
	// the test knows the directory existed during the run.
	configPath := fixture.config(t, "", `find "$TMPDIR" -name validation.pem > `+marker, "")

	output, err := execute(t, "run", "--local", "--config", configPath, "--only", "directory,credentials,download,install")
	if err != nil {
		t.Fatalf("run --local: %v\n%s", err, output)
	}
	if !strings.Contains(output, "skipped") {
		t.Errorf("sections outside --only should be skipped:\n%s", output)
	}

	seen, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("install section did not run: %v", err)
	}
	if !strings.Contains(string(seen), "nodestrap-bootstrap-") {
		t.Errorf("install section saw %q, want a file in a temporary bootstrap directory", seen)
	}

	entries, err := os.ReadDir(temporary)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "nodestrap-bootstrap-") {
			t.Errorf("temporary bootstrap directory %s was not removed", entry.Name())
		}
	}
}

func TestRunLocalExecutionFailed(t *testing.T) {
	t.Parallel()
	fixture := newRunFixture(t)
	configPath := fixture.config(t, fixture.directory, "exit 3", "")

	output, err := execute(t, "run", "--local", "--config", configPath)
	if got := process.Status(err); got != exitExecutionFailed {
		t.Fatalf("status = %d (err %v), want %d\n%s", got, err, exitExecutionFailed, output)
	}
	if !strings.Contains(output, "not_run") || !strings.Contains(output, "execution_failed") {
		t.Errorf("summary:\n%s", output)
	}
	attempts := fixture.attempts(t)
	if len(attempts) != 1 || attempts[0].Outcome != history.OutcomeExecutionFailed {
		t.Errorf("history = %+v", attempts)
	}
}

func TestRunLocalVerificationFailed(t *testing.T) {
	t.Parallel()
	fixture := newRunFixture(t)
	configPath := fixture.config(t, fixture.directory, "echo installed",
		"  checksum: "+strings.Repeat("0", 64)+"\n")

	output, err := execute(t, "run", "--local", "--config", configPath, "--no-history")
	if got := process.Status(err); got != exitVerificationFailed {
		t.Fatalf("status = %d (err %v), want %d\n%s", got, err, exitVerificationFailed, output)
	}
	if _, err := os.Stat(fixture.database); err == nil {
		t.Error("--no-history still created the history database")
	}
}

func TestRunRemoteNeedsTarget(t *testing.T) {
	t.Parallel()
	fixture := newRunFixture(t)
	configPath := fixture.config(t, fixture.directory, "echo installed", "")

	if _, err := execute(t, "run", "--config", configPath); err == nil || !strings.Contains(err.Error(), "target.platform") {
		t.Errorf("err = %v, want a platform complaint", err)
	}
}
