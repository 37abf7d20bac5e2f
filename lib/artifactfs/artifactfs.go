// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifactfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FileInfo is what an FS reports about a path.
type FileInfo struct {
	Exists bool
	Size   int64
}

// FS observes files where the artifact is expected.
type FS interface {
	Stat(ctx context.Context, path string) (FileInfo, error)
}

// Remover deletes a file. Removing an absent file is not an error.
type Remover interface {
	Remove(ctx context.Context, path string) error
}

// ContentReader opens a file for reading.
type ContentReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Local is the filesystem of the machine nodestrap runs on.
type Local struct{}

// Stat reports a regular file's size. A directory at path is an error:
// the artifact is always a file.
func (Local) Stat(_ context.Context, path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{}, nil
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return FileInfo{}, fmt.Errorf("stat %s: not a regular file (mode %s)", path, info.Mode())
	}
	return FileInfo{Exists: true, Size: info.Size()}, nil
}

func (Local) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func (Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return file, nil
}
