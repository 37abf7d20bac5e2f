// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError carries a non-zero exit code out of a command handler.
//
// With Err nil the command has already written its own output and
// main exits without printing anything else. With Err set, main
// prints Err the usual way and then exits with Code instead of 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the exit code. main checks for this interface on
// returned errors.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Silent reports whether the error has nothing left to print.
func (e *ExitError) Silent() bool {
	return e.Err == nil
}
