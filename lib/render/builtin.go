// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bureau-foundation/nodestrap/lib/platform"
)

//go:embed templates/*.yaml
var builtinFiles embed.FS

// Builtin template names.
const (
	WindowsMSI = "windows-msi"
	PosixSH    = "posix-sh"
)

// Builtin returns a parsed copy of an embedded template. A parse
// failure here is a bug in the embedded content, not a runtime
// condition.
func Builtin(name string) (*Template, error) {
	data, err := builtinFiles.ReadFile(path.Join("templates", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("no built-in template %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	template, err := Parse(data, FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("built-in template %s: %w", name, err)
	}
	return template, nil
}

// BuiltinNames lists the embedded templates, sorted.
func BuiltinNames() []string {
	entries, err := builtinFiles.ReadDir("templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// DefaultFor names the built-in template suited to a target platform.
func DefaultFor(descriptor platform.Descriptor) string {
	if descriptor.OS == platform.Windows {
		return WindowsMSI
	}
	return PosixSH
}

// Load resolves a template reference. A reference that names an
// existing file is read from disk; otherwise it must name a built-in
// template.
func Load(reference string) (*Template, error) {
	if _, err := os.Stat(reference); err == nil {
		return ReadFile(reference)
	}
	return Builtin(reference)
}
