// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// fieldNamePattern matches a context field name: a letter or
// underscore followed by letters, digits, and underscores.
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// segment is either literal text (field == "") or a placeholder.
type segment struct {
	literal string
	field   string
	// filters is nil when the placeholder carries no explicit filter
	// list and the dialect default applies.
	filters []string
}

// compile splits a run string into literal and placeholder segments.
// Only the braced ${...} form is a placeholder; a bare $NAME is left
// for the target shell. $${ is an escaped literal "${".
func compile(input string) ([]segment, error) {
	var segments []segment
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	for position := 0; position < len(input); {
		if strings.HasPrefix(input[position:], "$${") {
			literal.WriteString("${")
			position += 3
			continue
		}
		if !strings.HasPrefix(input[position:], "${") {
			literal.WriteByte(input[position])
			position++
			continue
		}

		end := strings.IndexByte(input[position+2:], '}')
		if end < 0 {
			return nil, fmt.Errorf("unterminated placeholder at offset %d", position)
		}
		body := input[position+2 : position+2+end]
		placeholder, err := parsePlaceholder(body)
		if err != nil {
			return nil, fmt.Errorf("placeholder ${%s}: %w", body, err)
		}
		flush()
		segments = append(segments, placeholder)
		position += 2 + end + 1
	}
	flush()
	return segments, nil
}

func parsePlaceholder(body string) (segment, error) {
	parts := strings.Split(body, "|")
	field := strings.TrimSpace(parts[0])
	if !fieldNamePattern.MatchString(field) {
		return segment{}, fmt.Errorf("invalid field name %q", field)
	}
	placeholder := segment{field: field}
	if len(parts) == 1 {
		return placeholder, nil
	}
	placeholder.filters = make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		name := strings.TrimSpace(part)
		if _, known := filters[name]; !known {
			return segment{}, fmt.Errorf("unknown filter %q (known: %s)", name, strings.Join(FilterNames(), ", "))
		}
		placeholder.filters = append(placeholder.filters, name)
	}
	return placeholder, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
