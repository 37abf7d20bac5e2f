// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodestrap/cmd/nodestrap/cli"
	"github.com/bureau-foundation/nodestrap/lib/sealed"
)

func sealCommand(stdout io.Writer) *cli.Command {
	var (
		recipients []string
		outputPath string
	)
	return &cli.Command{
		Name:    "seal",
		Summary: "Encrypt a secret file for bootstrap.secret_file",
		Description: `Encrypt a secret file to one or more age recipients.

The armored result can be committed next to the config and named by
bootstrap.secret_file; bootstrap.secret_age_identity_file names the
identity that opens it at run time. Reads the file argument, or stdin
when it is "-" or absent.`,
		Usage: "nodestrap seal [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "Seal a data bag secret for one operator key",
				Command:     "nodestrap seal --recipient age1ql3z7hjy54pw3hyww5ayyfg7zqgvc7w3j2elw8zmrj2kg5sfn9aqmcac8p -o secret.age encrypted_data_bag_secret",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringArrayVarP(&recipients, "recipient", "r", nil, "age recipient public key (repeatable)")
			flagSet.StringVarP(&outputPath, "output", "o", "", "write here instead of stdout")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("expected at most one input file, got %d arguments", len(args))
			}
			if len(recipients) == 0 {
				return errors.New("at least one --recipient is required")
			}

			var (
				plaintext []byte
				err       error
			)
			if len(args) == 0 || args[0] == "-" {
				plaintext, err = io.ReadAll(os.Stdin)
			} else {
				plaintext, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading secret: %w", err)
			}
			if len(plaintext) == 0 {
				return errors.New("refusing to seal an empty secret")
			}

			ciphertext, err := sealed.Encrypt(plaintext, recipients)
			if err != nil {
				return err
			}
			if outputPath == "" {
				_, err = stdout.Write(ciphertext)
				return err
			}
			if err := os.WriteFile(outputPath, ciphertext, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", outputPath, err)
			}
			return nil
		},
	}
}
