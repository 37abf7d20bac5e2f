// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Theme styles command output for one writer. Colors use ANSI
// 256-color codes; when the writer is not a terminal the renderer
// drops them and output is plain text.
type Theme struct {
	renderer *lipgloss.Renderer

	Header lipgloss.Style
	Label  lipgloss.Style
	Faint  lipgloss.Style
	Good   lipgloss.Style
	Bad    lipgloss.Style
	Warn   lipgloss.Style
}

// NewTheme returns a Theme whose color profile matches w.
func NewTheme(w io.Writer) *Theme {
	renderer := lipgloss.NewRenderer(w)
	return &Theme{
		renderer: renderer,
		Header:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("255")),
		Label:    renderer.NewStyle().Foreground(lipgloss.Color("245")),
		Faint:    renderer.NewStyle().Foreground(lipgloss.Color("241")),
		Good:     renderer.NewStyle().Foreground(lipgloss.Color("114")),
		Bad:      renderer.NewStyle().Foreground(lipgloss.Color("196")),
		Warn:     renderer.NewStyle().Foreground(lipgloss.Color("220")),
	}
}

// Status colors a status word: green for success, red for failure,
// amber for timeouts, gray for units that never ran.
func (theme *Theme) Status(status string) string {
	switch status {
	case "ok", "succeeded", "satisfied", "verified":
		return theme.Good.Render(status)
	case "timed_out", "completion_timeout":
		return theme.Warn.Render(status)
	case "skipped", "not_run", "":
		return theme.Faint.Render(status)
	default:
		return theme.Bad.Render(status)
	}
}

// Field renders an aligned "label  value" line.
func (theme *Theme) Field(label, value string) string {
	return theme.Label.Width(12).Render(label) + value
}

// Table renders rows under headers with a rounded border. statusColumn,
// when non-negative, colors that column with Status.
func (theme *Theme) Table(headers []string, rows [][]string, statusColumn int) string {
	cell := theme.renderer.NewStyle().Padding(0, 1)
	header := cell.Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.Faint).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, column int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if column == statusColumn && row >= 0 && row < len(rows) {
				return cell.Foreground(theme.statusColor(rows[row][column]))
			}
			return cell
		}).
		String()
}

func (theme *Theme) statusColor(status string) lipgloss.TerminalColor {
	switch status {
	case "ok", "succeeded":
		return theme.Good.GetForeground()
	case "timed_out", "completion_timeout":
		return theme.Warn.GetForeground()
	case "skipped", "not_run", "":
		return theme.Faint.GetForeground()
	default:
		return theme.Bad.GetForeground()
	}
}
