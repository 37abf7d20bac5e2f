// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package verify decides whether a bootstrap attempt produced the
// artifact it was supposed to.
//
// [NonEmpty] is the baseline: the artifact exists and has at least one
// byte. A zero-length file is treated exactly like a missing one, since
// it usually means a download started and never finished. [Checksum]
// additionally compares a SHA256 or BLAKE3 digest when the filesystem
// can read content. [All] composes verifiers.
//
// Verify returns (false, nil) for an artifact that is wrong or absent
// and a non-nil error only when the artifact could not be inspected.
package verify

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/nodestrap/lib/artifactfs"
	"github.com/bureau-foundation/nodestrap/lib/binhash"
)

// Verifier inspects the artifact at path.
type Verifier interface {
	Verify(ctx context.Context, path string) (bool, error)
}

// NonEmpty passes when path exists with a size greater than zero.
type NonEmpty struct {
	FS artifactfs.FS
}

func (v NonEmpty) Verify(ctx context.Context, path string) (bool, error) {
	info, err := v.FS.Stat(ctx, path)
	if err != nil {
		return false, err
	}
	return info.Exists && info.Size > 0, nil
}

// Checksum passes when the content of path hashes to Expected. The FS
// must implement artifactfs.ContentReader.
type Checksum struct {
	FS        artifactfs.FS
	Algorithm binhash.Algorithm
	Expected  [32]byte
}

// NewChecksum parses a hex digest for the named algorithm.
func NewChecksum(filesystem artifactfs.FS, algorithm, expected string) (*Checksum, error) {
	parsedAlgorithm, err := binhash.ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	digest, err := binhash.ParseDigest(expected)
	if err != nil {
		return nil, fmt.Errorf("expected %s digest: %w", parsedAlgorithm, err)
	}
	return &Checksum{FS: filesystem, Algorithm: parsedAlgorithm, Expected: digest}, nil
}

func (v *Checksum) Verify(ctx context.Context, path string) (bool, error) {
	reader, ok := v.FS.(artifactfs.ContentReader)
	if !ok {
		return false, fmt.Errorf("checksum verification of %s: filesystem %T cannot read content", path, v.FS)
	}

	present, err := NonEmpty{FS: v.FS}.Verify(ctx, path)
	if err != nil || !present {
		return false, err
	}

	content, err := reader.Open(ctx, path)
	if err != nil {
		return false, err
	}
	defer content.Close()

	digest, err := binhash.HashReader(v.Algorithm, content)
	if err != nil {
		return false, fmt.Errorf("checksum verification of %s: %w", path, err)
	}
	return digest == v.Expected, nil
}

type all []Verifier

// All passes when every verifier passes, checking in order and
// stopping at the first failure or error.
func All(verifiers ...Verifier) Verifier {
	return all(verifiers)
}

func (verifiers all) Verify(ctx context.Context, path string) (bool, error) {
	for _, verifier := range verifiers {
		ok, err := verifier.Verify(ctx, path)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
