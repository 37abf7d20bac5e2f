// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// nodestrap bootstraps a configuration-management agent onto one node:
// it renders a platform template with the node's context, runs each
// section over SSH (or locally), waits for the installer artifact, and
// verifies it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/nodestrap/cmd/nodestrap/cli"
	"github.com/bureau-foundation/nodestrap/lib/process"
	"github.com/bureau-foundation/nodestrap/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output return a silent
		// ExitError. Don't print a redundant "error:" line for those.
		var exit *cli.ExitError
		if errors.As(err, &exit) && exit.Silent() {
			os.Exit(exit.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return root(os.Stdout).Execute(ctx, os.Args[1:])
}

// root builds the command tree. Command output goes to stdout; logs and
// help go to stderr.
func root(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "nodestrap",
		Description: `nodestrap: bootstrap a configuration-management agent onto a node.

Renders a platform bootstrap template with the node's context, runs
each section over SSH (or on this machine with --local), waits for the
installer artifact to appear, and verifies it. Every attempt is
recorded in a local history database.`,
		Subcommands: []*cli.Command{
			runCommand(stdout),
			renderCommand(stdout),
			verifyCommand(stdout),
			historyCommand(stdout),
			sealCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string) error {
					fmt.Fprintf(stdout, "nodestrap %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Bootstrap the node described in a config file",
				Command:     "nodestrap run --config node01.yaml",
			},
			{
				Description: "Run only the download section on this machine",
				Command:     "nodestrap run --local --only download --config local.yaml",
			},
			{
				Description: "Show the last attempts against one node",
				Command:     "nodestrap history --target node01",
			},
		},
	}
}
