// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedError struct{ code int }

func (e *codedError) Error() string { return fmt.Sprintf("coded %d", e.code) }
func (e *codedError) ExitCode() int { return e.code }

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"coded", &codedError{code: 3}, 3},
		{"wrapped", fmt.Errorf("run: %w", &codedError{code: 4}), 4},
		{"joined", errors.Join(errors.New("first"), &codedError{code: 2}), 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := Status(test.err); got != test.want {
				t.Errorf("Status(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	Report(&buffer, errors.New("connection refused"))
	if got, want := buffer.String(), "error: connection refused\n"; got != want {
		t.Errorf("Report wrote %q, want %q", got, want)
	}
}
