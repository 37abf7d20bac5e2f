// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package localsession

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func shellCommand(ctx context.Context, command string) (*exec.Cmd, func(), error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	// Own process group: negative PID signals the shell and every
	// child it started.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	return cmd, func() {}, nil
}

// killGroup sends SIGKILL to a process group. ESRCH (already gone) is
// the common case and is ignored.
func killGroup(group int) {
	_ = unix.Kill(-group, unix.SIGKILL)
}
