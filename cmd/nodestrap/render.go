// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodestrap/cmd/nodestrap/cli"
	"github.com/bureau-foundation/nodestrap/lib/bootcontext"
	"github.com/bureau-foundation/nodestrap/lib/config"
	"github.com/bureau-foundation/nodestrap/lib/render"
)

func renderCommand(stdout io.Writer) *cli.Command {
	var (
		configPath string
		template   string
		only       []string
		local      bool
		list       bool
		digest     bool
	)
	return &cli.Command{
		Name:    "render",
		Summary: "Print the rendered bootstrap script without running it",
		Description: `Print the rendered bootstrap script without running it.

Assembles the context from the config file and renders the template
exactly as "nodestrap run" would, then prints the script. Output is
syntax-highlighted when stdout is a terminal. Secrets from the config
appear in the output.`,
		Usage: "nodestrap render [flags]",
		Examples: []cli.Example{
			{
				Description: "Show the script for a Windows node",
				Command:     "nodestrap render --config windows.yaml",
			},
			{
				Description: "List the built-in templates",
				Command:     "nodestrap render --list",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("render", pflag.ContinueOnError)
			flagSet.StringVarP(&configPath, "config", "c", "", "config file (default: $"+config.EnvironmentVariable+")")
			flagSet.StringVarP(&template, "template", "t", "", "built-in template name or template file (overrides template.name)")
			flagSet.StringSliceVar(&only, "only", nil, "print only these section kinds")
			flagSet.BoolVar(&local, "local", false, "resolve the platform from this machine when target.platform is unset")
			flagSet.BoolVar(&list, "list", false, "list the built-in templates and exit")
			flagSet.BoolVar(&digest, "digest", false, "print only the script digest")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			if list {
				for _, name := range render.BuiltinNames() {
					fmt.Fprintln(stdout, name)
				}
				return nil
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if template != "" {
				cfg.Template.Name = template
			}
			if len(only) > 0 {
				cfg.Template.Only = only
			}
			script, err := renderScript(cfg, local)
			if err != nil {
				return err
			}
			// The digest always covers the whole script, matching what
			// run records in history.
			if digest {
				fmt.Fprintln(stdout, script.Digest())
				return nil
			}
			shown, err := keepKinds(script, cfg.Template.Only)
			if err != nil {
				return err
			}
			return cli.Highlight(stdout, shown.Text(), string(shown.Dialect))
		},
	}
}

// renderScript runs the context and template stages of an attempt.
func renderScript(cfg *config.Config, local bool) (*render.Script, error) {
	descriptor, err := targetPlatform(cfg.Target.Platform, local)
	if err != nil {
		return nil, err
	}
	template, err := loadTemplate(cfg.Template.Name, descriptor)
	if err != nil {
		return nil, err
	}
	values, err := bootcontext.Assemble(cfg.Bootstrap, descriptor, bootcontext.Sources{ReadFile: os.ReadFile})
	if err != nil {
		return nil, err
	}
	return render.Render(template, values)
}

// keepKinds drops units whose kind is not in only. Empty only keeps
// everything; a kind the script lacks is an error, as it is for run.
func keepKinds(script *render.Script, only []string) (*render.Script, error) {
	if len(only) == 0 {
		return script, nil
	}
	kinds := script.Kinds()
	for _, kind := range only {
		if !slices.Contains(kinds, kind) {
			return nil, fmt.Errorf("template %s has no %q section (kinds: %s)", script.Template, kind, strings.Join(kinds, ", "))
		}
	}
	kept := &render.Script{Template: script.Template, Dialect: script.Dialect}
	for _, unit := range script.Units {
		if slices.Contains(only, unit.Kind) {
			kept.Units = append(kept.Units, unit)
		}
	}
	return kept, nil
}
