// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads nodestrap's YAML configuration.
//
// Configuration comes from exactly one file, named by the --config flag
// (via [LoadFile]) or the NODESTRAP_CONFIG environment variable (via
// [Load]). There is no discovery and no fallback search path, so the
// file an operator reads is the file a run used.
//
// The file has six sections: target (where and how to connect),
// bootstrap (the values assembled into the bootstrap context), session,
// completion, history and template. Environment sections (development,
// staging, production) override session, completion, history and
// template when [Config].Environment matches. Production refuses to
// skip host key verification.
//
// ${HOME}, ${NODESTRAP_STATE} and ${VAR:-default} are expanded in local
// file paths after loading. Paths that live on the target
// (bootstrap_directory, local_download_path) are left as written.
//
// Durations are strings in time.ParseDuration syntax; [Config.Validate]
// rejects malformed ones, after which the accessor methods cannot fail.
package config
