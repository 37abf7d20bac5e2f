// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

// lexers maps script dialects to chroma lexer names.
var lexers = map[string]string{
	"batch":      "batch",
	"powershell": "powershell",
	"posix":      "bash",
}

// Highlight writes source to w, syntax-colored for dialect when w is a
// terminal and plain otherwise. Unknown dialects and highlighter
// failures fall back to plain text.
func Highlight(w io.Writer, source, dialect string) error {
	if !IsTerminal(w) {
		_, err := io.WriteString(w, source)
		return err
	}
	return highlightTo(w, source, dialect)
}

func highlightTo(w io.Writer, source, dialect string) error {
	lexer, ok := lexers[dialect]
	if !ok {
		_, err := io.WriteString(w, source)
		return err
	}
	if err := quick.Highlight(w, source, lexer, "terminal256", "monokai"); err != nil {
		_, err = io.WriteString(w, source)
		return err
	}
	return nil
}
