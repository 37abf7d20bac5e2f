// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import "fmt"

// ExecutionFailedError reports the unit whose command exited non-zero.
// Index is the zero-based position in the unit list.
type ExecutionFailedError struct {
	Index      int
	Name       string
	Kind       string
	ExitStatus int
	Output     string
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("unit %d (%s) exited with status %d", e.Index+1, e.Name, e.ExitStatus)
}

// UnitError wraps a transport failure with the unit it interrupted.
type UnitError struct {
	Index int
	Name  string
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
