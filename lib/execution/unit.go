// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import (
	"context"

	"github.com/bureau-foundation/nodestrap/lib/render"
	"github.com/bureau-foundation/nodestrap/lib/session"
)

// Unit is one dispatchable step of a bootstrap attempt.
type Unit interface {
	// Name identifies the unit in logs, errors, and history.
	Name() string

	// Kind is the capability tag used to select units for
	// substitution (for example "download" or "credentials").
	Kind() string

	// Dispatch performs the unit's work through s. A non-zero exit
	// status is reported in the result, not as an error.
	Dispatch(ctx context.Context, s session.Session) (session.CommandResult, error)
}

// CommandUnit submits one command string.
type CommandUnit struct {
	name    string
	kind    string
	command string
}

// NewCommand returns a unit that submits command.
func NewCommand(name, kind, command string) *CommandUnit {
	return &CommandUnit{name: name, kind: kind, command: command}
}

func (u *CommandUnit) Name() string { return u.name }
func (u *CommandUnit) Kind() string { return u.kind }

// Command returns the command text the unit submits.
func (u *CommandUnit) Command() string { return u.command }

func (u *CommandUnit) Dispatch(ctx context.Context, s session.Session) (session.CommandResult, error) {
	return s.Submit(ctx, u.command)
}

// NoopUnit stands in for a unit whose side effect is not wanted. It
// succeeds immediately and never touches the session.
type NoopUnit struct {
	name string
	kind string
}

// Noop returns a no-op stand-in carrying the given name and kind.
func Noop(name, kind string) NoopUnit {
	return NoopUnit{name: name, kind: kind}
}

func (u NoopUnit) Name() string { return u.name }
func (u NoopUnit) Kind() string { return u.kind }

func (u NoopUnit) Dispatch(context.Context, session.Session) (session.CommandResult, error) {
	return session.CommandResult{}, nil
}

// FromScript builds one CommandUnit per rendered unit, in order.
func FromScript(script *render.Script) []Unit {
	units := make([]Unit, len(script.Units))
	for i, rendered := range script.Units {
		units[i] = NewCommand(rendered.Name, rendered.Kind, rendered.Command)
	}
	return units
}

// ReplaceKinds returns a copy of units in which every unit whose kind
// is listed is replaced by replace(unit). Order and length are
// preserved.
func ReplaceKinds(units []Unit, kinds []string, replace func(Unit) Unit) []Unit {
	selected := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		selected[kind] = true
	}
	replaced := make([]Unit, len(units))
	for i, unit := range units {
		if selected[unit.Kind()] {
			replaced[i] = replace(unit)
		} else {
			replaced[i] = unit
		}
	}
	return replaced
}

// KeepOnly returns a copy of units in which every unit whose kind is
// not listed is replaced by a NoopUnit with the same name and kind.
func KeepOnly(units []Unit, kinds ...string) []Unit {
	keep := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		keep[kind] = true
	}
	replaced := make([]Unit, len(units))
	for i, unit := range units {
		if keep[unit.Kind()] {
			replaced[i] = unit
		} else {
			replaced[i] = Noop(unit.Name(), unit.Kind())
		}
	}
	return replaced
}

// Kinds returns the distinct kinds of units in order.
func Kinds(units []Unit) []string {
	seen := make(map[string]bool)
	var kinds []string
	for _, unit := range units {
		if !seen[unit.Kind()] {
			seen[unit.Kind()] = true
			kinds = append(kinds, unit.Kind())
		}
	}
	return kinds
}
