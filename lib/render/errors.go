// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"strings"
)

// UndefinedPlaceholderError reports placeholders in one section that
// name fields the context does not hold.
type UndefinedPlaceholderError struct {
	Section string
	Fields  []string
}

func (e *UndefinedPlaceholderError) Error() string {
	return fmt.Sprintf("section %q references undefined fields: %s", e.Section, strings.Join(e.Fields, ", "))
}

// QuotingError reports a value that a filter cannot represent safely.
type QuotingError struct {
	Section string
	Field   string
	Filter  string
	Reason  string
}

func (e *QuotingError) Error() string {
	return fmt.Sprintf("section %q: field %s cannot be quoted with %s: %s", e.Section, e.Field, e.Filter, e.Reason)
}
