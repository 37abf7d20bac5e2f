// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodestrap/cmd/nodestrap/cli"
	"github.com/bureau-foundation/nodestrap/lib/artifactfs"
	"github.com/bureau-foundation/nodestrap/lib/binhash"
	"github.com/bureau-foundation/nodestrap/lib/orchestrate"
	"github.com/bureau-foundation/nodestrap/lib/verify"
)

func verifyCommand(stdout io.Writer) *cli.Command {
	var sha256Digest, blake3Digest string
	return &cli.Command{
		Name:    "verify",
		Summary: "Check a downloaded artifact on this machine",
		Description: `Check a downloaded artifact on this machine.

The artifact passes when it is a non-empty regular file and, if a
digest is given, its content hashes to that digest. Exits 4 when the
check fails.`,
		Usage: "nodestrap verify [flags] <path>",
		Examples: []cli.Example{
			{
				Description: "Check that the installer downloaded",
				Command:     "nodestrap verify /tmp/chef-client-latest.msi",
			},
			{
				Description: "Check it against a published SHA-256",
				Command:     "nodestrap verify --sha256 9f86d081884c7d65... /tmp/chef-client-latest.msi",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			flagSet.StringVar(&sha256Digest, "sha256", "", "expected SHA-256 digest (hex)")
			flagSet.StringVar(&blake3Digest, "blake3", "", "expected BLAKE3 digest (hex)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one path, got %d arguments", len(args))
			}
			if sha256Digest != "" && blake3Digest != "" {
				return errors.New("--sha256 and --blake3 are mutually exclusive")
			}
			path := args[0]

			filesystem := artifactfs.Local{}
			verifiers := []verify.Verifier{verify.NonEmpty{FS: filesystem}}
			algorithm, digest := binhash.SHA256, sha256Digest
			if blake3Digest != "" {
				algorithm, digest = binhash.BLAKE3, blake3Digest
			}
			if digest != "" {
				checksum, err := verify.NewChecksum(filesystem, string(algorithm), digest)
				if err != nil {
					return err
				}
				verifiers = append(verifiers, checksum)
			}

			ok, err := verify.All(verifiers...).Verify(ctx, path)
			if err != nil {
				return err
			}
			theme := cli.NewTheme(stdout)
			if !ok {
				fmt.Fprintf(stdout, "%s: %s\n", path, theme.Status("failed"))
				return exitError(&orchestrate.VerificationFailedError{Path: path})
			}
			fmt.Fprintf(stdout, "%s: %s\n", path, theme.Status("verified"))
			return nil
		},
	}
}
