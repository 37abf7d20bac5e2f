// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bootcontext

import (
	"fmt"
	"strings"
)

// FieldProblem describes why one required field could not be resolved.
type FieldProblem struct {
	Field  string
	Reason string
}

// MissingFieldError reports every required field that Assemble could
// not resolve, sorted by field name.
type MissingFieldError struct {
	Problems []FieldProblem
}

func (e *MissingFieldError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("bootstrap context: field %s: %s", e.Problems[0].Field, e.Problems[0].Reason)
	}
	parts := make([]string, len(e.Problems))
	for i, problem := range e.Problems {
		parts[i] = problem.Field + " (" + problem.Reason + ")"
	}
	return fmt.Sprintf("bootstrap context: %d fields unresolved: %s", len(e.Problems), strings.Join(parts, ", "))
}

// Fields returns the names of the unresolved fields.
func (e *MissingFieldError) Fields() []string {
	names := make([]string, len(e.Problems))
	for i, problem := range e.Problems {
		names[i] = problem.Field
	}
	return names
}
