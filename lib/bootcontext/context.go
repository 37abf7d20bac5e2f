// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bootcontext

import (
	"sort"
)

// Field names. Templates reference these as ${name}.
const (
	FieldValidationKey          = "validation_key"
	FieldEncryptedDataBagSecret = "encrypted_data_bag_secret"
	FieldConfigContent          = "config_content"
	FieldRunList                = "run_list"
	FieldInstallCommand         = "install_command"
	FieldStartCommand           = "start_command"
	FieldBootstrapDirectory     = "bootstrap_directory"
	FieldLocalDownloadPath      = "local_download_path"
	FieldInstallerURL           = "installer_url"
)

// RequiredFields lists every field Assemble must populate, sorted.
var RequiredFields = []string{
	FieldBootstrapDirectory,
	FieldConfigContent,
	FieldEncryptedDataBagSecret,
	FieldInstallCommand,
	FieldInstallerURL,
	FieldLocalDownloadPath,
	FieldRunList,
	FieldStartCommand,
	FieldValidationKey,
}

// Context is the immutable set of values a template renders against.
type Context struct {
	fields map[string]string
}

// New builds a Context directly from a field map. The map is copied.
// Intended for tests and for callers that resolve values themselves;
// no required-field checking is performed.
func New(fields map[string]string) *Context {
	copied := make(map[string]string, len(fields))
	for name, value := range fields {
		copied[name] = value
	}
	return &Context{fields: copied}
}

// Lookup returns the value of a field and whether it is present.
func (c *Context) Lookup(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	value, ok := c.fields[name]
	return value, ok
}

// Names returns the field names in sorted order.
func (c *Context) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of the context with the given fields overridden.
// The receiver is not modified. A nil receiver yields a context
// holding only overrides.
func (c *Context) With(overrides map[string]string) *Context {
	if c == nil {
		return New(overrides)
	}
	merged := make(map[string]string, len(c.fields)+len(overrides))
	for name, value := range c.fields {
		merged[name] = value
	}
	for name, value := range overrides {
		merged[name] = value
	}
	return &Context{fields: merged}
}
