// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/bureau-foundation/nodestrap/cmd/nodestrap/cli"
	"github.com/bureau-foundation/nodestrap/lib/history"
	"github.com/bureau-foundation/nodestrap/lib/orchestrate"
)

// Exit statuses for a failed attempt. Everything else exits 1.
const (
	exitExecutionFailed    = 2
	exitCompletionTimeout  = 3
	exitVerificationFailed = 4
)

// exitError attaches the attempt's exit status to err.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	code := 1
	switch orchestrate.Classify(err) {
	case history.OutcomeExecutionFailed:
		code = exitExecutionFailed
	case history.OutcomeCompletionTimeout:
		code = exitCompletionTimeout
	case history.OutcomeVerificationFailed:
		code = exitVerificationFailed
	}
	return &cli.ExitError{Code: code, Err: err}
}
