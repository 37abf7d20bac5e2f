// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bootcontext assembles the named string fields a bootstrap
// template is rendered against.
//
// A [Context] is built once per attempt by [Assemble] from a
// [TargetConfig] (inline values and file references, usually loaded
// from the nodestrap config file) and the target's
// [platform.Descriptor]. Every required field must resolve to a
// non-empty value: when any cannot, Assemble returns a single
// [*MissingFieldError] naming all of them, so an operator fixes the
// config in one pass instead of one field per run.
//
// Secret material may be stored age-encrypted on disk. When
// TargetConfig.SecretAgeIdentityFile is set the secret file is
// decrypted through [sealed.Decrypt] before it enters the context.
//
// Contexts are immutable after assembly. Field values are never logged;
// [Context.Names] exposes only the field names for diagnostics.
package bootcontext
