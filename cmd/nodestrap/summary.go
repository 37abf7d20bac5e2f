// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bureau-foundation/nodestrap/cmd/nodestrap/cli"
	"github.com/bureau-foundation/nodestrap/lib/execution"
	"github.com/bureau-foundation/nodestrap/lib/orchestrate"
)

// printResult writes the attempt summary. err is the attempt's error;
// it is shown as the outcome, not returned.
func printResult(theme *cli.Theme, w io.Writer, target string, result *orchestrate.Result, err error) {
	fmt.Fprintln(w, theme.Header.Render("nodestrap run"))
	fmt.Fprintln(w, theme.Field("target", target))
	fmt.Fprintln(w, theme.Field("template", result.Template))
	if result.ScriptDigest != "" {
		fmt.Fprintln(w, theme.Field("digest", result.ScriptDigest))
	}
	if result.Outcome != nil {
		fmt.Fprintln(w, theme.Table(unitHeaders, unitRows(result.Outcome.Results), unitStatusColumn))
	}
	if result.Completion != "" {
		fmt.Fprintln(w, theme.Field("artifact", theme.Status(string(result.Completion))))
	}
	if result.Verified {
		fmt.Fprintln(w, theme.Field("verified", theme.Status("verified")))
	}
	if result.AttemptID != 0 {
		fmt.Fprintln(w, theme.Field("attempt", strconv.FormatInt(result.AttemptID, 10)))
	}
	fmt.Fprintln(w, theme.Field("elapsed", formatDuration(result.Elapsed)))
	fmt.Fprintln(w, theme.Field("outcome", theme.Status(string(orchestrate.Classify(err)))))
}

var unitHeaders = []string{"#", "SECTION", "KIND", "STATUS", "EXIT", "DURATION"}

const unitStatusColumn = 3

func unitRows(results []execution.UnitResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, unit := range results {
		exit := ""
		if unit.Status == execution.StatusOK || unit.Status == execution.StatusFailed {
			exit = strconv.Itoa(unit.ExitStatus)
		}
		duration := ""
		if unit.Status != execution.StatusNotRun && unit.Status != execution.StatusSkipped {
			duration = formatDuration(unit.Duration)
		}
		rows = append(rows, []string{
			strconv.Itoa(unit.Index),
			unit.Name,
			unit.Kind,
			string(unit.Status),
			exit,
			duration,
		})
	}
	return rows
}

// formatDuration rounds for display.
func formatDuration(duration time.Duration) string {
	switch {
	case duration >= time.Second:
		return duration.Round(100 * time.Millisecond).String()
	case duration >= time.Millisecond:
		return duration.Round(time.Millisecond).String()
	default:
		return duration.String()
	}
}
