// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package localsession

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// shellCommand writes command to a temporary batch file so that it is
// parsed with batch-file rules, then runs it with cmd.exe.
func shellCommand(ctx context.Context, command string) (*exec.Cmd, func(), error) {
	file, err := os.CreateTemp("", "nodestrap-unit-*.cmd")
	if err != nil {
		return nil, nil, fmt.Errorf("creating unit script: %w", err)
	}
	cleanup := func() { os.Remove(file.Name()) }
	if _, err := file.WriteString("@echo off\r\n" + command + "\r\n"); err != nil {
		file.Close()
		cleanup()
		return nil, nil, fmt.Errorf("writing unit script: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("writing unit script: %w", err)
	}
	return exec.CommandContext(ctx, "cmd.exe", "/D", "/Q", "/C", file.Name()), cleanup, nil
}

func killGroup(int) {}
