// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"crypto/sha256"
	"strconv"
	"strings"

	"github.com/bureau-foundation/nodestrap/lib/binhash"
)

// Unit is one rendered, independently submittable command.
type Unit struct {
	// Index is the position of the originating section in the template.
	Index   int
	Name    string
	Kind    string
	Command string
}

// Script is the ordered output of one Render call. Treat it as
// immutable; execution builds its own unit list from it.
type Script struct {
	Template string
	Dialect  Dialect
	Units    []Unit
}

// Text joins all unit commands with the dialect's line ending, for
// display or for writing the script to a file.
func (s *Script) Text() string {
	var builder strings.Builder
	newline := s.Dialect.LineEnding()
	for _, unit := range s.Units {
		builder.WriteString(unit.Command)
		builder.WriteString(newline)
	}
	return builder.String()
}

// Digest returns a hex SHA256 over the unit names, kinds, and commands.
// Two renders of the same template and context have the same digest.
func (s *Script) Digest() string {
	hasher := sha256.New()
	for _, unit := range s.Units {
		// Length-prefix each field so boundaries cannot shift.
		for _, field := range []string{unit.Name, unit.Kind, unit.Command} {
			hasher.Write([]byte(strconv.Itoa(len(field))))
			hasher.Write([]byte{':'})
			hasher.Write([]byte(field))
		}
	}
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return binhash.FormatDigest(digest)
}

// Kinds returns the distinct unit kinds in script order.
func (s *Script) Kinds() []string {
	seen := make(map[string]bool)
	var kinds []string
	for _, unit := range s.Units {
		if !seen[unit.Kind] {
			seen[unit.Kind] = true
			kinds = append(kinds, unit.Kind)
		}
	}
	return kinds
}
