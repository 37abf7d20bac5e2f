// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"encoding/base64"
	"errors"
	"sort"
	"strings"
)

// filterFunc transforms one value. A returned error becomes the Reason
// of a *QuotingError.
type filterFunc func(value string) (string, error)

var filters = map[string]filterFunc{
	"raw":     func(value string) (string, error) { return value, nil },
	"sh":      quotePOSIX,
	"batch":   quoteBatch,
	"pwsh":    quotePowerShell,
	"cmdtext": escapeCmdText,
	"b64":     encodeBase64,
}

// FilterNames returns the known filter names, sorted.
func FilterNames() []string {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// quotePOSIX wraps value in single quotes. Nothing is special inside
// POSIX single quotes except the quote itself, which is closed,
// backslash-escaped, and reopened.
func quotePOSIX(value string) (string, error) {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'", nil
}

// quoteBatch wraps value in double quotes for a batch file. Inside
// double quotes the only remaining metacharacter is %, which is
// doubled; batch-file parsing collapses %% back to %. A plain
// "cmd /c" command line does not, which is why batch units are always
// run from a file. A
// double quote cannot be escaped inside a quoted cmd.exe argument, and
// a line break ends the command, so both are rejected.
func quoteBatch(value string) (string, error) {
	escaped, err := escapeCmdText(value)
	if err != nil {
		return "", err
	}
	return `"` + escaped + `"`, nil
}

// escapeCmdText doubles % without adding quotes, for values spliced
// into a string the template already quotes.
func escapeCmdText(value string) (string, error) {
	if err := rejectCmdUnsafe(value); err != nil {
		return "", err
	}
	return strings.ReplaceAll(value, "%", "%%"), nil
}

// quotePowerShell wraps value in single quotes; PowerShell escapes an
// embedded single quote by doubling it.
func quotePowerShell(value string) (string, error) {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'", nil
}

func encodeBase64(value string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(value)), nil
}

func rejectCmdUnsafe(value string) error {
	switch {
	case strings.ContainsRune(value, '"'):
		return errors.New(`value contains a double quote, which cmd.exe cannot escape inside a quoted argument`)
	case strings.ContainsAny(value, "\r\n"):
		return errors.New("value contains a line break, which would end the command")
	}
	return nil
}

// Quote applies one named filter to value outside of a template, for
// callers that build commands directly (filesystem probes, for
// example).
func Quote(filter, value string) (string, error) {
	function, known := filters[filter]
	if !known {
		return "", errors.New("unknown filter " + filter)
	}
	return function(value)
}
