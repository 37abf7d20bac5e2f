// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrate runs one bootstrap attempt end to end.
//
// [Orchestrator.Bootstrap] wires the pipeline stages in order:
//
//	bootcontext.Assemble    resolve every field the template may use
//	render.Render           produce the script, strictly
//	execution.FromScript    one unit per section, then --only and
//	                        substitutions replace units by kind
//	session.Opener.Open     connect to the target
//	artifactfs Remove       optionally clear a stale artifact
//	execution.Driver.Run    submit units in order, stop at first failure
//	monitor.AwaitCondition  wait for the artifact to appear non-empty
//	verify.Verifier         confirm the artifact (size, then checksum)
//
// The session is closed on every path once opened. When a history
// recorder is configured, every attempt that got as far as having a
// target is recorded, successful or not, with its outcome class from
// [Classify].
//
// Every failure is returned as a typed error from the stage that
// produced it; none is downgraded to success. [CompletionTimeoutError]
// and [VerificationFailedError] are defined here because no single
// stage owns them.
package orchestrate
