// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifactfs

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bureau-foundation/nodestrap/lib/render"
	"github.com/bureau-foundation/nodestrap/lib/session"
)

// Shell selects the probe language Remote uses.
type Shell string

const (
	ShellPOSIX      Shell = "posix"
	ShellPowerShell Shell = "powershell"
)

// Probe output markers.
const (
	markerAbsent  = "absent"
	markerNotFile = "notfile"
)

// Remote observes files on the target through a session.
type Remote struct {
	Session session.Session
	Shell   Shell
}

func (r Remote) Stat(ctx context.Context, path string) (FileInfo, error) {
	command, err := r.statCommand(path)
	if err != nil {
		return FileInfo{}, err
	}
	result, err := r.Session.Submit(ctx, command)
	if err != nil {
		return FileInfo{}, fmt.Errorf("remote stat %s: %w", path, err)
	}

	output := strings.TrimSpace(result.Output)
	switch {
	case result.ExitStatus == 0 && output == markerAbsent:
		return FileInfo{}, nil
	case output == markerNotFile:
		return FileInfo{}, fmt.Errorf("remote stat %s: not a regular file", path)
	case result.ExitStatus != 0:
		return FileInfo{}, fmt.Errorf("remote stat %s: probe exited %d: %s", path, result.ExitStatus, output)
	}

	size, err := strconv.ParseInt(output, 10, 64)
	if err != nil {
		return FileInfo{}, fmt.Errorf("remote stat %s: unexpected probe output %q", path, output)
	}
	return FileInfo{Exists: true, Size: size}, nil
}

func (r Remote) Remove(ctx context.Context, path string) error {
	var command string
	switch r.Shell {
	case ShellPowerShell:
		quoted, err := render.Quote("pwsh", path)
		if err != nil {
			return err
		}
		command = session.EncodePowerShell("Remove-Item -LiteralPath " + quoted + " -Force -ErrorAction SilentlyContinue; exit 0")
	default:
		quoted, err := render.Quote("sh", path)
		if err != nil {
			return err
		}
		command = "rm -f -- " + quoted
	}
	result, err := r.Session.Submit(ctx, command)
	if err != nil {
		return fmt.Errorf("remote remove %s: %w", path, err)
	}
	if result.ExitStatus != 0 {
		return fmt.Errorf("remote remove %s: exited %d: %s", path, result.ExitStatus, strings.TrimSpace(result.Output))
	}
	return nil
}

// Open fetches the whole file through the session as base64 text. It
// is meant for checksum verification of installer-sized files, not for
// streaming large content.
func (r Remote) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	var command string
	switch r.Shell {
	case ShellPowerShell:
		quoted, err := render.Quote("pwsh", path)
		if err != nil {
			return nil, err
		}
		command = session.EncodePowerShell("[Convert]::ToBase64String([IO.File]::ReadAllBytes(" + quoted + "))")
	default:
		quoted, err := render.Quote("sh", path)
		if err != nil {
			return nil, err
		}
		command = "base64 < " + quoted
	}
	result, err := r.Session.Submit(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("remote read %s: %w", path, err)
	}
	if result.ExitStatus != 0 {
		return nil, fmt.Errorf("remote read %s: exited %d: %s", path, result.ExitStatus, strings.TrimSpace(result.Output))
	}
	content, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(result.Output), ""))
	if err != nil {
		return nil, fmt.Errorf("remote read %s: decoding probe output: %w", path, err)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (r Remote) statCommand(path string) (string, error) {
	switch r.Shell {
	case ShellPowerShell:
		quoted, err := render.Quote("pwsh", path)
		if err != nil {
			return "", err
		}
		script := "$p = " + quoted + "; " +
			"if (Test-Path -LiteralPath $p -PathType Leaf) { (Get-Item -LiteralPath $p).Length } " +
			"elseif (Test-Path -LiteralPath $p) { '" + markerNotFile + "'; exit 2 } " +
			"else { '" + markerAbsent + "' }"
		return session.EncodePowerShell(script), nil
	case ShellPOSIX, "":
		quoted, err := render.Quote("sh", path)
		if err != nil {
			return "", err
		}
		return "if [ -f " + quoted + " ]; then wc -c < " + quoted + "; " +
			"elif [ -e " + quoted + " ]; then echo " + markerNotFile + "; exit 2; " +
			"else echo " + markerAbsent + "; fi", nil
	}
	return "", fmt.Errorf("unknown probe shell %q", r.Shell)
}
