// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package render expands bootstrap script templates against a
// bootstrap context, producing an ordered list of independently
// submittable command units.
//
// A [Template] is a named list of sections. Each section has a name, a
// kind (a capability tag such as "download" or "credentials" that
// callers use to substitute units), and a run string containing
// placeholders. Templates are authored as YAML or JSONC:
//
//	name: posix-sh
//	dialect: posix
//	sections:
//	  - name: download
//	    kind: download
//	    run: curl -fsSL -o ${local_download_path} ${installer_url}
//
// # Placeholders
//
// ${field} substitutes a context field quoted for the template's
// dialect. ${field|filter|filter...} applies explicit filters left to
// right instead. $${ produces a literal "${". Filters:
//
//   - raw: the value verbatim, for fields that are themselves commands
//   - sh: POSIX single quotes, embedded ' becomes '\''
//   - batch: cmd.exe double quotes with % doubled; rejects ", CR, LF
//   - pwsh: PowerShell single quotes, embedded ' becomes ''
//   - cmdtext: % doubled, no quotes; rejects ", CR, LF
//   - b64: standard base64, for multi-line content that must cross a
//     single-line command (decoded on the target)
//
// Quoting is the part of bootstrap most likely to go wrong silently: a
// mis-quoted path produces a script that is syntactically valid but
// downloads to the wrong place. Values that cannot be represented
// safely in the requested form fail with [*QuotingError] instead of
// being passed through.
//
// # Strictness
//
// [Render] fails with [*UndefinedPlaceholderError] when any placeholder
// names a field the context does not hold, listing every unresolved
// name. No partial script is ever returned. Unknown filters and
// malformed placeholders are rejected by [Validate], which [Parse]
// runs on every template it loads. Rendering is deterministic: the
// same template and context produce byte-identical units.
//
// Two templates are embedded: "windows-msi" (batch dialect) and
// "posix-sh" (posix dialect). See [Builtin] and [Load].
package render
