// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform describes the operating system and architecture of a
// bootstrap target. A Descriptor is resolved once at startup and passed
// explicitly to the code that formats paths or picks installers; nothing
// downstream reads or mutates process environment to find out what it
// is running against.
package platform

import (
	"fmt"
	"strings"
)

// OS identifies the target operating system family.
type OS string

const (
	Windows OS = "windows"
	Linux   OS = "linux"
	Darwin  OS = "darwin"
)

// Arch is a normalized CPU architecture name.
type Arch string

const (
	AMD64 Arch = "x86_64"
	I386  Arch = "i686"
	ARM64 Arch = "aarch64"
)

// Descriptor is the resolved platform of one bootstrap target.
type Descriptor struct {
	OS   OS
	Arch Arch
}

// Separator returns the native path separator for the target.
func (d Descriptor) Separator() byte {
	if d.OS == Windows {
		return '\\'
	}
	return '/'
}

// NativePath rewrites forward slashes to the target's separator.
// Paths for POSIX targets are returned unchanged.
func (d Descriptor) NativePath(path string) string {
	if d.OS != Windows {
		return path
	}
	return strings.ReplaceAll(path, "/", `\`)
}

// String returns "os/arch".
func (d Descriptor) String() string {
	return string(d.OS) + "/" + string(d.Arch)
}

// Validate checks that both fields hold known values.
func (d Descriptor) Validate() error {
	switch d.OS {
	case Windows, Linux, Darwin:
	default:
		return fmt.Errorf("unsupported target os %q", d.OS)
	}
	switch d.Arch {
	case AMD64, I386, ARM64:
	default:
		return fmt.Errorf("unsupported target arch %q", d.Arch)
	}
	return nil
}

// Resolve determines the platform nodestrap itself runs on. goos and
// goarch are normally runtime.GOOS and runtime.GOARCH; environ is
// normally os.Getenv.
//
// On Windows a 32-bit process running under WOW64 sees
// PROCESSOR_ARCHITECTURE=x86 while the machine is 64-bit; the real
// value is in PROCESSOR_ARCHITEW6432, which takes precedence.
func Resolve(environ func(string) string, goos, goarch string) (Descriptor, error) {
	descriptor := Descriptor{OS: OS(goos)}
	arch := goarch
	if goos == "windows" && environ != nil {
		if native := environ("PROCESSOR_ARCHITEW6432"); native != "" {
			arch = native
		} else if reported := environ("PROCESSOR_ARCHITECTURE"); reported != "" {
			arch = reported
		}
	}
	normalized, err := ParseArch(arch)
	if err != nil {
		return Descriptor{}, err
	}
	descriptor.Arch = normalized
	if err := descriptor.Validate(); err != nil {
		return Descriptor{}, err
	}
	return descriptor, nil
}

// Parse reads an "os/arch" or "os" string. A bare os defaults to x86_64.
func Parse(value string) (Descriptor, error) {
	osPart, archPart, found := strings.Cut(value, "/")
	descriptor := Descriptor{OS: OS(strings.ToLower(strings.TrimSpace(osPart))), Arch: AMD64}
	if found {
		arch, err := ParseArch(archPart)
		if err != nil {
			return Descriptor{}, err
		}
		descriptor.Arch = arch
	}
	if err := descriptor.Validate(); err != nil {
		return Descriptor{}, err
	}
	return descriptor, nil
}

// ParseArch normalizes the spellings used by Go, Windows, and uname.
func ParseArch(value string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "amd64", "x86_64", "x64", "em64t":
		return AMD64, nil
	case "386", "x86", "i386", "i686":
		return I386, nil
	case "arm64", "aarch64":
		return ARM64, nil
	}
	return "", fmt.Errorf("unknown architecture %q", value)
}
