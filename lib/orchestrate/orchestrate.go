// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bureau-foundation/nodestrap/lib/artifactfs"
	"github.com/bureau-foundation/nodestrap/lib/bootcontext"
	"github.com/bureau-foundation/nodestrap/lib/clock"
	"github.com/bureau-foundation/nodestrap/lib/execution"
	"github.com/bureau-foundation/nodestrap/lib/history"
	"github.com/bureau-foundation/nodestrap/lib/monitor"
	"github.com/bureau-foundation/nodestrap/lib/platform"
	"github.com/bureau-foundation/nodestrap/lib/render"
	"github.com/bureau-foundation/nodestrap/lib/session"
	"github.com/bureau-foundation/nodestrap/lib/verify"
)

// Recorder stores finished attempts. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, attempt history.Attempt) (int64, error)
}

// Substitution replaces every unit of the listed kinds.
type Substitution struct {
	Kinds   []string
	Replace func(execution.Unit) execution.Unit
}

// Completion bounds the wait for the artifact after the last unit.
type Completion struct {
	Interval time.Duration
	Deadline time.Duration
}

// ChecksumSpec adds a content check after the size check.
type ChecksumSpec struct {
	// Algorithm is "sha256" or "blake3"; empty means sha256.
	Algorithm string
	// Digest is the expected hex digest.
	Digest string
}

// Request describes one bootstrap attempt.
type Request struct {
	// Endpoint addresses the target. History records the attempt under
	// Endpoint.String(); a request with no host is not recorded.
	Endpoint    session.Endpoint
	Credentials session.Credentials
	Platform    platform.Descriptor

	Bootstrap bootcontext.TargetConfig
	Sources   bootcontext.Sources
	Template  *render.Template

	// Only keeps the listed section kinds and turns the others into
	// no-ops. Every kind must exist in the template.
	Only []string
	// Substitutions are applied after Only, in order.
	Substitutions []Substitution

	// Filesystem observes the artifact. Nil probes the target through
	// the attempt's own session.
	Filesystem artifactfs.FS
	// Shell selects the probe language when Filesystem is nil. Empty
	// picks PowerShell for Windows targets and POSIX otherwise.
	Shell artifactfs.Shell

	// CleanArtifact removes an existing artifact before running. The
	// filesystem must implement artifactfs.Remover.
	CleanArtifact bool

	Completion Completion
	Checksum   *ChecksumSpec
}

// Result summarizes one attempt. Fields are filled as far as the
// attempt got.
type Result struct {
	// AttemptID is the history id, zero when no recorder is set or
	// recording failed.
	AttemptID int64

	Template     string
	ScriptDigest string
	Outcome      *execution.Outcome
	Completion   monitor.Status
	Verified     bool
	Elapsed      time.Duration
}

// Options configure an Orchestrator. Nil fields select defaults: the
// real clock, a discarding logger, and no history.
type Options struct {
	Clock    clock.Clock
	Logger   *slog.Logger
	Recorder Recorder
}

// Orchestrator runs bootstrap attempts. One Orchestrator may serve
// several attempts concurrently; each gets its own session.
type Orchestrator struct {
	opener   session.Opener
	clock    clock.Clock
	logger   *slog.Logger
	recorder Recorder
}

// New returns an Orchestrator that opens sessions with opener.
func New(opener session.Opener, options Options) *Orchestrator {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		opener:   opener,
		clock:    options.Clock,
		logger:   options.Logger,
		recorder: options.Recorder,
	}
}

// Bootstrap runs one attempt. The returned Result is never nil, so a
// caller can report partial progress alongside the error.
func (o *Orchestrator) Bootstrap(ctx context.Context, request Request) (*Result, error) {
	start := o.clock.Now()
	result := &Result{}
	if request.Template != nil {
		result.Template = request.Template.Name
	}
	logger := o.logger.With("target", request.Endpoint.String(), "template", result.Template)

	err := o.bootstrap(ctx, request, result, logger)
	result.Elapsed = clock.Since(o.clock, start)

	if err != nil {
		logger.Error("bootstrap failed", "outcome", Classify(err), "elapsed", result.Elapsed, "error", err)
	} else {
		logger.Info("bootstrap succeeded", "elapsed", result.Elapsed)
	}
	o.record(ctx, request, result, start, err, logger)
	return result, err
}

func (o *Orchestrator) bootstrap(ctx context.Context, request Request, result *Result, logger *slog.Logger) error {
	if request.Template == nil {
		return errors.New("bootstrap: no template")
	}
	if request.Completion.Interval <= 0 {
		return fmt.Errorf("bootstrap: completion interval must be positive, got %s", request.Completion.Interval)
	}

	values, err := bootcontext.Assemble(request.Bootstrap, request.Platform, request.Sources)
	if err != nil {
		return err
	}
	artifactPath, _ := values.Lookup(bootcontext.FieldLocalDownloadPath)

	script, err := render.Render(request.Template, values)
	if err != nil {
		return err
	}
	result.ScriptDigest = script.Digest()
	logger.Debug("script rendered", "units", len(script.Units), "digest", result.ScriptDigest)

	units, err := buildUnits(script, request)
	if err != nil {
		return err
	}

	sess, err := o.opener.Open(ctx, request.Endpoint, request.Credentials)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			logger.Warn("closing session", "error", closeErr)
		}
	}()

	filesystem := request.Filesystem
	if filesystem == nil {
		filesystem = artifactfs.Remote{Session: sess, Shell: probeShell(request)}
	}

	if request.CleanArtifact {
		remover, ok := filesystem.(artifactfs.Remover)
		if !ok {
			return fmt.Errorf("bootstrap: cleaning %s: filesystem %T cannot remove files", artifactPath, filesystem)
		}
		if err := remover.Remove(ctx, artifactPath); err != nil {
			return fmt.Errorf("bootstrap: cleaning stale artifact: %w", err)
		}
		logger.Debug("stale artifact removed", "path", artifactPath)
	}

	driver := execution.NewDriver(o.clock, logger)
	outcome, err := driver.Run(ctx, units, sess)
	result.Outcome = outcome
	if err != nil {
		return err
	}

	awaitStart := o.clock.Now()
	status, err := monitor.New(o.clock, logger).AwaitCondition(ctx, monitor.Check{
		Predicate: monitor.ArtifactReady(filesystem, artifactPath),
		Interval:  request.Completion.Interval,
		Deadline:  request.Completion.Deadline,
	})
	result.Completion = status
	if status == monitor.StatusTimedOut {
		timeout := &CompletionTimeoutError{Path: artifactPath, Elapsed: clock.Since(o.clock, awaitStart)}
		if err != nil {
			return errors.Join(timeout, err)
		}
		return timeout
	}
	if err != nil {
		return fmt.Errorf("bootstrap: awaiting artifact: %w", err)
	}

	verifier, err := buildVerifier(filesystem, request.Checksum)
	if err != nil {
		return err
	}
	verified, err := verifier.Verify(ctx, artifactPath)
	if err != nil {
		return fmt.Errorf("bootstrap: verifying artifact: %w", err)
	}
	if !verified {
		return &VerificationFailedError{Path: artifactPath}
	}
	result.Verified = true
	return nil
}

func buildUnits(script *render.Script, request Request) ([]execution.Unit, error) {
	units := execution.FromScript(script)
	if len(request.Only) > 0 {
		kinds := execution.Kinds(units)
		for _, kind := range request.Only {
			if !slices.Contains(kinds, kind) {
				return nil, fmt.Errorf("bootstrap: template %s has no section of kind %q (kinds: %v)",
					script.Template, kind, kinds)
			}
		}
		units = execution.KeepOnly(units, request.Only...)
	}
	for _, substitution := range request.Substitutions {
		units = execution.ReplaceKinds(units, substitution.Kinds, substitution.Replace)
	}
	return units, nil
}

func buildVerifier(filesystem artifactfs.FS, checksum *ChecksumSpec) (verify.Verifier, error) {
	nonEmpty := verify.NonEmpty{FS: filesystem}
	if checksum == nil || checksum.Digest == "" {
		return nonEmpty, nil
	}
	check, err := verify.NewChecksum(filesystem, checksum.Algorithm, checksum.Digest)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return verify.All(nonEmpty, check), nil
}

func probeShell(request Request) artifactfs.Shell {
	if request.Shell != "" {
		return request.Shell
	}
	if request.Platform.OS == platform.Windows {
		return artifactfs.ShellPowerShell
	}
	return artifactfs.ShellPOSIX
}

// record stores the attempt. A recording failure is logged and never
// changes the attempt's own result.
func (o *Orchestrator) record(ctx context.Context, request Request, result *Result, start time.Time, attemptErr error, logger *slog.Logger) {
	if o.recorder == nil {
		return
	}
	if request.Endpoint.Host == "" {
		logger.Debug("attempt not recorded: no endpoint host")
		return
	}
	attempt := history.Attempt{
		Target:       request.Endpoint.String(),
		Template:     result.Template,
		ScriptDigest: result.ScriptDigest,
		StartedAt:    start,
		Duration:     result.Elapsed,
		Outcome:      Classify(attemptErr),
	}
	if attemptErr != nil {
		attempt.Error = attemptErr.Error()
	}
	if result.Outcome != nil {
		attempt.Units = result.Outcome.Results
	}

	// A cancelled attempt is still worth recording.
	recordContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	id, err := o.recorder.Record(recordContext, attempt)
	if err != nil {
		logger.Warn("recording attempt in history", "error", err)
		return
	}
	result.AttemptID = id
}
