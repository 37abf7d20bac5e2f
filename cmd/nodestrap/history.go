// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodestrap/cmd/nodestrap/cli"
	"github.com/bureau-foundation/nodestrap/lib/codec"
	"github.com/bureau-foundation/nodestrap/lib/config"
	"github.com/bureau-foundation/nodestrap/lib/history"
)

// historyFlags are shared by "history" and "history show".
type historyFlags struct {
	configPath string
	database   string
}

func (flags *historyFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&flags.configPath, "config", "c", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&flags.database, "db", "", "history database (overrides history.path)")
}

// open opens the history store named by the flags or the config.
func (flags *historyFlags) open() (*history.Store, error) {
	path := flags.database
	if path == "" {
		cfg, err := loadConfig(flags.configPath)
		if err != nil {
			return nil, err
		}
		if cfg.History.Disabled {
			return nil, errors.New("history is disabled in the config (pass --db to read a database anyway)")
		}
		path = cfg.History.Path
	}
	return history.Open(history.Config{Path: path})
}

func historyCommand(stdout io.Writer) *cli.Command {
	var (
		flags  historyFlags
		target string
		limit  int
	)
	return &cli.Command{
		Name:    "history",
		Summary: "List recorded bootstrap attempts",
		Description: `List recorded bootstrap attempts, newest first.

Every "nodestrap run" records its outcome, script digest, and the
captured output of each section. Use "history show" for one attempt's
sections.`,
		Usage: "nodestrap history [flags]\n  nodestrap history show [flags] <id>",
		Examples: []cli.Example{
			{
				Description: "The last attempts against one node",
				Command:     "nodestrap history --target node01 --limit 5",
			},
			{
				Description: "One attempt with section output",
				Command:     "nodestrap history show --output 12",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("history", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVar(&target, "target", "", "only attempts against this target")
			flagSet.IntVarP(&limit, "limit", "n", 20, "maximum attempts to list")
			return flagSet
		},
		Subcommands: []*cli.Command{historyShowCommand(stdout)},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q (did you mean \"history show %s\"?)", args[0], args[0])
			}
			store, err := flags.open()
			if err != nil {
				return err
			}
			defer store.Close()

			attempts, err := store.List(ctx, history.Filter{Target: target, Limit: limit})
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				fmt.Fprintln(stdout, "no attempts recorded")
				return nil
			}
			theme := cli.NewTheme(stdout)
			fmt.Fprintln(stdout, theme.Table(attemptHeaders, attemptRows(attempts), attemptOutcomeColumn))
			return nil
		},
	}
}

var attemptHeaders = []string{"ID", "STARTED", "TARGET", "TEMPLATE", "OUTCOME", "DURATION", "UNITS"}

const attemptOutcomeColumn = 4

func attemptRows(attempts []history.Attempt) [][]string {
	rows := make([][]string, 0, len(attempts))
	for _, attempt := range attempts {
		rows = append(rows, []string{
			strconv.FormatInt(attempt.ID, 10),
			attempt.StartedAt.Local().Format(time.DateTime),
			attempt.Target,
			attempt.Template,
			string(attempt.Outcome),
			formatDuration(attempt.Duration),
			strconv.Itoa(attempt.UnitCount),
		})
	}
	return rows
}

func historyShowCommand(stdout io.Writer) *cli.Command {
	var (
		flags  historyFlags
		output bool
		raw    bool
	)
	return &cli.Command{
		Name:    "show",
		Summary: "Show one attempt and its sections",
		Usage:   "nodestrap history show [flags] <id>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.BoolVarP(&output, "output", "o", false, "print each section's captured output")
			flagSet.BoolVar(&raw, "raw", false, "print the stored section records in CBOR diagnostic notation")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one attempt id, got %d arguments", len(args))
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid attempt id %q", args[0])
			}
			store, err := flags.open()
			if err != nil {
				return err
			}
			defer store.Close()

			if raw {
				blob, err := store.RawUnits(ctx, id)
				if err != nil {
					return err
				}
				diagnostic, err := codec.Diagnose(blob)
				if err != nil {
					return fmt.Errorf("attempt %d: %w", id, err)
				}
				fmt.Fprintln(stdout, diagnostic)
				return nil
			}

			attempt, err := store.Get(ctx, id)
			if err != nil {
				return err
			}
			printAttempt(cli.NewTheme(stdout), stdout, attempt, output)
			return nil
		},
	}
}

func printAttempt(theme *cli.Theme, w io.Writer, attempt *history.Attempt, withOutput bool) {
	fmt.Fprintln(w, theme.Header.Render(fmt.Sprintf("attempt %d", attempt.ID)))
	fmt.Fprintln(w, theme.Field("target", attempt.Target))
	fmt.Fprintln(w, theme.Field("template", attempt.Template))
	fmt.Fprintln(w, theme.Field("digest", attempt.ScriptDigest))
	fmt.Fprintln(w, theme.Field("started", attempt.StartedAt.Local().Format(time.RFC3339)))
	fmt.Fprintln(w, theme.Field("duration", formatDuration(attempt.Duration)))
	fmt.Fprintln(w, theme.Field("outcome", theme.Status(string(attempt.Outcome))))
	if attempt.Error != "" {
		fmt.Fprintln(w, theme.Field("error", attempt.Error))
	}
	if len(attempt.Units) > 0 {
		fmt.Fprintln(w, theme.Table(unitHeaders, unitRows(attempt.Units), unitStatusColumn))
	}
	if !withOutput {
		return
	}
	for _, unit := range attempt.Units {
		if unit.Output == "" && unit.Error == "" {
			continue
		}
		fmt.Fprintln(w, theme.Header.Render(fmt.Sprintf("── %d %s", unit.Index, unit.Name)))
		if unit.Output != "" {
			fmt.Fprintln(w, strings.TrimRight(unit.Output, "\r\n"))
		}
		if unit.Error != "" {
			fmt.Fprintln(w, theme.Bad.Render(unit.Error))
		}
	}
}
