// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/base64"
	"strings"
	"unicode/utf16"
)

// powershellPrefix starts every command line built by EncodePowerShell.
const powershellPrefix = "powershell -NoProfile -NonInteractive -EncodedCommand "

// EncodePowerShell returns a command line that runs script through
// -EncodedCommand. The line holds only base64 text, so cmd.exe and the
// SSH exec request pass it through unchanged.
func EncodePowerShell(script string) string {
	encoded := utf16.Encode([]rune(script))
	raw := make([]byte, 0, len(encoded)*2)
	for _, unit := range encoded {
		raw = append(raw, byte(unit), byte(unit>>8))
	}
	return powershellPrefix + base64.StdEncoding.EncodeToString(raw)
}

// DecodePowerShell reverses EncodePowerShell. ok is false when command
// was not produced by it.
func DecodePowerShell(command string) (script string, ok bool) {
	encoded, found := strings.CutPrefix(command, powershellPrefix)
	if !found {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw)%2 != 0 {
		return "", false
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
	}
	return string(utf16.Decode(units)), true
}

// BatchFileCommand returns a command line that runs command with
// batch-file parsing on a Windows target. A command sent as an exec
// request reaches cmd.exe as "cmd /c <command>", where %% stays
// doubled; batch-dialect units are rendered for batch files, so the
// unit is written to a temporary .cmd file and run from there. The
// exit status of the file is the exit status of the returned line.
func BatchFileCommand(command string) string {
	payload := base64.StdEncoding.EncodeToString([]byte("@echo off\r\n" + command + "\r\n"))
	script := "$f = Join-Path ([IO.Path]::GetTempPath()) ('nodestrap-unit-' + [guid]::NewGuid().ToString('N') + '.cmd'); " +
		"[IO.File]::WriteAllBytes($f, [Convert]::FromBase64String('" + payload + "')); " +
		"try { & $env:ComSpec /D /Q /C $f; $code = $LASTEXITCODE } " +
		"finally { Remove-Item -LiteralPath $f -Force -ErrorAction SilentlyContinue }; " +
		"exit $code"
	return EncodePowerShell(script)
}

// BatchFileContent extracts the batch file a BatchFileCommand line
// writes on the target.
func BatchFileContent(command string) (string, bool) {
	script, ok := DecodePowerShell(command)
	if !ok {
		return "", false
	}
	_, rest, found := strings.Cut(script, "FromBase64String('")
	if !found {
		return "", false
	}
	payload, _, found := strings.Cut(rest, "'")
	if !found {
		return "", false
	}
	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	return string(content), true
}
