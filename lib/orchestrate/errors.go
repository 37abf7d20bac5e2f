// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrate

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/nodestrap/lib/bootcontext"
	"github.com/bureau-foundation/nodestrap/lib/execution"
	"github.com/bureau-foundation/nodestrap/lib/history"
	"github.com/bureau-foundation/nodestrap/lib/render"
	"github.com/bureau-foundation/nodestrap/lib/session"
)

// CompletionTimeoutError means every unit succeeded but the artifact
// did not appear, or stayed empty, until the completion deadline.
type CompletionTimeoutError struct {
	Path    string
	Elapsed time.Duration
}

func (e *CompletionTimeoutError) Error() string {
	return fmt.Sprintf("artifact %s did not appear within %s", e.Path, e.Elapsed)
}

// VerificationFailedError means the artifact appeared but a verifier
// rejected it.
type VerificationFailedError struct {
	Path string
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("artifact %s failed verification", e.Path)
}

// Classify maps an error returned by Bootstrap to the outcome class
// stored in history. A nil error is OutcomeSucceeded.
func Classify(err error) history.Outcome {
	var (
		missingField    *bootcontext.MissingFieldError
		undefined       *render.UndefinedPlaceholderError
		executionFailed *execution.ExecutionFailedError
		transport       *session.TransportError
		transportTime   *session.TransportTimeoutError
		completion      *CompletionTimeoutError
		verification    *VerificationFailedError
	)
	switch {
	case err == nil:
		return history.OutcomeSucceeded
	case errors.As(err, &missingField):
		return history.OutcomeMissingField
	case errors.As(err, &undefined):
		return history.OutcomeUndefinedPlaceholder
	case errors.As(err, &executionFailed):
		return history.OutcomeExecutionFailed
	case errors.As(err, &transport), errors.As(err, &transportTime), errors.Is(err, session.ErrClosed):
		return history.OutcomeTransport
	case errors.As(err, &completion):
		return history.OutcomeCompletionTimeout
	case errors.As(err, &verification):
		return history.OutcomeVerificationFailed
	default:
		return history.OutcomeError
	}
}
