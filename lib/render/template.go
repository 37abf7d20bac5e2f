// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Dialect selects the default quoting for unfiltered placeholders and
// the line ending used when a script is printed as a whole.
type Dialect string

const (
	DialectPOSIX      Dialect = "posix"
	DialectBatch      Dialect = "batch"
	DialectPowerShell Dialect = "powershell"
)

// defaultFilter returns the filter applied to ${field} with no
// explicit filter list.
func (d Dialect) defaultFilter() string {
	switch d {
	case DialectBatch:
		return "batch"
	case DialectPowerShell:
		return "pwsh"
	default:
		return "sh"
	}
}

// LineEnding returns the newline sequence for scripts in this dialect.
func (d Dialect) LineEnding() string {
	if d == DialectBatch {
		return "\r\n"
	}
	return "\n"
}

// Template is a parsed bootstrap script template.
type Template struct {
	Name     string    `json:"name" yaml:"name"`
	Dialect  Dialect   `json:"dialect" yaml:"dialect"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Section is one command unit of a template.
type Section struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
	Run  string `json:"run" yaml:"run"`
}

// Format identifies a template file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSONC
)

// FormatFromPath infers the template format from a file extension.
// .json and .jsonc are JSONC; everything else is YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSONC
	}
	return FormatYAML
}

// Parse decodes and validates a template.
func Parse(data []byte, format Format) (*Template, error) {
	var template Template
	switch format {
	case FormatJSONC:
		if err := json.Unmarshal(jsonc.ToJSON(data), &template); err != nil {
			return nil, fmt.Errorf("parsing template: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("parsing template: %w", err)
		}
	}

	if issues := Validate(&template); len(issues) > 0 {
		return nil, fmt.Errorf("template %q is invalid: %s", template.Name, strings.Join(issues, "; "))
	}
	return &template, nil
}

// ReadFile reads and parses a template file, choosing the format from
// its extension.
func ReadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	template, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if template.Name == "" {
		template.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return template, nil
}

// Validate checks a template for structural issues. Returns a list of
// human-readable issue descriptions; an empty list means the template
// can be rendered.
//
// Checks:
//   - dialect is one of posix, batch, powershell (empty means posix)
//   - at least one section
//   - each section has a unique non-empty name, a kind, and a run string
//   - every placeholder is well-formed and names only known filters
func Validate(template *Template) []string {
	var issues []string

	switch template.Dialect {
	case "", DialectPOSIX, DialectBatch, DialectPowerShell:
	default:
		issues = append(issues, fmt.Sprintf("unknown dialect %q (want posix, batch, or powershell)", template.Dialect))
	}

	if len(template.Sections) == 0 {
		issues = append(issues, "template has no sections (at least one is required)")
	}

	seen := make(map[string]bool, len(template.Sections))
	for index, section := range template.Sections {
		prefix := fmt.Sprintf("sections[%d]", index)
		if section.Name == "" {
			issues = append(issues, fmt.Sprintf("%s: name is required", prefix))
		} else {
			prefix = fmt.Sprintf("sections[%d] %q", index, section.Name)
			if seen[section.Name] {
				issues = append(issues, fmt.Sprintf("%s: duplicate section name", prefix))
			}
			seen[section.Name] = true
		}
		if section.Kind == "" {
			issues = append(issues, fmt.Sprintf("%s: kind is required", prefix))
		}
		if strings.TrimSpace(section.Run) == "" {
			issues = append(issues, fmt.Sprintf("%s: run is required", prefix))
			continue
		}
		if _, err := compile(section.Run); err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", prefix, err))
		}
	}

	return issues
}

// Fields returns the sorted, de-duplicated set of context fields the
// template references. The template must be valid.
func (t *Template) Fields() []string {
	set := make(map[string]bool)
	for _, section := range t.Sections {
		segments, err := compile(section.Run)
		if err != nil {
			continue
		}
		for _, segment := range segments {
			if segment.field != "" {
				set[segment.field] = true
			}
		}
	}
	return sortedKeys(set)
}

func (t *Template) dialect() Dialect {
	if t.Dialect == "" {
		return DialectPOSIX
	}
	return t.Dialect
}
