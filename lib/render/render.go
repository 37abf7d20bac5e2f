// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"errors"
	"fmt"
	"strings"
)

// Values is the lookup a template renders against.
// *bootcontext.Context implements it.
type Values interface {
	Lookup(name string) (string, bool)
}

// Render expands every section of template against values. All
// sections are checked before anything is returned: if any placeholder
// is unresolved the result is an error (one *UndefinedPlaceholderError
// per offending section, joined) and no script.
func Render(template *Template, values Values) (*Script, error) {
	if issues := Validate(template); len(issues) > 0 {
		return nil, fmt.Errorf("template %q is invalid: %s", template.Name, strings.Join(issues, "; "))
	}

	dialect := template.dialect()
	units := make([]Unit, 0, len(template.Sections))
	var undefined []error

	for index, section := range template.Sections {
		segments, err := compile(section.Run)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", section.Name, err)
		}

		missing := make(map[string]bool)
		var command strings.Builder
		for _, segment := range segments {
			if segment.field == "" {
				command.WriteString(segment.literal)
				continue
			}
			value, ok := values.Lookup(segment.field)
			if !ok {
				missing[segment.field] = true
				continue
			}
			expanded, err := applyFilters(section.Name, segment, value, dialect)
			if err != nil {
				return nil, err
			}
			command.WriteString(expanded)
		}

		if len(missing) > 0 {
			undefined = append(undefined, &UndefinedPlaceholderError{
				Section: section.Name,
				Fields:  sortedKeys(missing),
			})
			continue
		}

		units = append(units, Unit{
			Index:   index,
			Name:    section.Name,
			Kind:    section.Kind,
			Command: command.String(),
		})
	}

	switch len(undefined) {
	case 0:
	case 1:
		return nil, undefined[0]
	default:
		return nil, errors.Join(undefined...)
	}

	return &Script{Template: template.Name, Dialect: dialect, Units: units}, nil
}

func applyFilters(section string, placeholder segment, value string, dialect Dialect) (string, error) {
	chain := placeholder.filters
	if chain == nil {
		chain = []string{dialect.defaultFilter()}
	}
	for _, name := range chain {
		filtered, err := filters[name](value)
		if err != nil {
			return "", &QuotingError{Section: section, Field: placeholder.field, Filter: name, Reason: err.Error()}
		}
		value = filtered
	}
	return value, nil
}
